package api

import (
	"sync"

	"github.com/r3d91ll/insight/pkg/insight"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// -----------------------------------------------------------------------------
// Event Types
// -----------------------------------------------------------------------------

// Analysis lifecycle events. Steps go to ChannelSimulation, everything
// else to ChannelAnalyses.
const (
	EventTypeAnalysisStarted  = "analysis_started"
	EventTypeSimulationStep   = "simulation_step"
	EventTypeAnalysisComplete = "analysis_complete"
	EventTypeAnalysisFailed   = "analysis_failed"
)

// AnalysisStartedEvent is sent when a run begins extracting tokens.
type AnalysisStartedEvent struct {
	RunID      string `json:"runId"`
	Text       string `json:"text"`
	Extractor  string `json:"extractor"`
	Iterations int    `json:"iterations"`
}

// SimulationStepEvent carries the particle positions after one iteration.
type SimulationStepEvent struct {
	RunID         string          `json:"runId"`
	Iteration     int             `json:"iteration"`
	Total         int             `json:"total"`
	KineticEnergy float64         `json:"kineticEnergy"`
	Positions     []insight.Point `json:"positions"`
}

// AnalysisCompleteEvent is sent once the finished analysis is stored.
type AnalysisCompleteEvent struct {
	RunID      string          `json:"runId"`
	Analysis   insight.Summary `json:"analysis"`
	Hash       string          `json:"hash"`
	Warnings   []string        `json:"warnings,omitempty"`
	DurationMS float64         `json:"durationMs"`
}

// AnalysisFailedEvent is sent when extraction or simulation fails.
type AnalysisFailedEvent struct {
	RunID   string `json:"runId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// -----------------------------------------------------------------------------
// EventBroadcaster Interface
// -----------------------------------------------------------------------------

// EventBroadcaster publishes analysis events to connected clients.
type EventBroadcaster interface {
	BroadcastAnalysisStarted(event *AnalysisStartedEvent) error
	BroadcastSimulationStep(event *SimulationStepEvent) error
	BroadcastAnalysisComplete(event *AnalysisCompleteEvent) error
	BroadcastAnalysisFailed(event *AnalysisFailedEvent) error
}

// StepObserver adapts b into a simulation observer for the run runID.
// Broadcast errors are dropped; a slow UI must not stall the engine.
func StepObserver(b EventBroadcaster, runID string) simulation.Observer {
	return func(s simulation.Step) {
		positions := make([]insight.Point, len(s.Positions))
		for i, v := range s.Positions {
			positions[i] = insight.Point{v.X, v.Y}
		}
		_ = b.BroadcastSimulationStep(&SimulationStepEvent{
			RunID:         runID,
			Iteration:     s.Iteration,
			Total:         s.Total,
			KineticEnergy: s.KineticEnergy,
			Positions:     positions,
		})
	}
}

// -----------------------------------------------------------------------------
// HubEventBroadcaster Implementation
// -----------------------------------------------------------------------------

// HubEventBroadcaster wraps the WebSocket Hub to implement EventBroadcaster.
type HubEventBroadcaster struct {
	hub *Hub
}

// NewHubEventBroadcaster creates a new HubEventBroadcaster.
func NewHubEventBroadcaster(hub *Hub) *HubEventBroadcaster {
	return &HubEventBroadcaster{hub: hub}
}

// BroadcastAnalysisStarted sends a start event to the analyses channel.
func (b *HubEventBroadcaster) BroadcastAnalysisStarted(event *AnalysisStartedEvent) error {
	return b.hub.BroadcastToChannel(ChannelAnalyses, newMessage(EventTypeAnalysisStarted, event))
}

// BroadcastSimulationStep sends a step event to the simulation channel.
func (b *HubEventBroadcaster) BroadcastSimulationStep(event *SimulationStepEvent) error {
	return b.hub.BroadcastToChannel(ChannelSimulation, newMessage(EventTypeSimulationStep, event))
}

// BroadcastAnalysisComplete sends a completion event to the analyses channel.
func (b *HubEventBroadcaster) BroadcastAnalysisComplete(event *AnalysisCompleteEvent) error {
	return b.hub.BroadcastToChannel(ChannelAnalyses, newMessage(EventTypeAnalysisComplete, event))
}

// BroadcastAnalysisFailed sends a failure event to the analyses channel.
func (b *HubEventBroadcaster) BroadcastAnalysisFailed(event *AnalysisFailedEvent) error {
	return b.hub.BroadcastToChannel(ChannelAnalyses, newMessage(EventTypeAnalysisFailed, event))
}

// -----------------------------------------------------------------------------
// Mock Event Broadcaster for Testing
// -----------------------------------------------------------------------------

// MockEventBroadcaster records events instead of sending them.
type MockEventBroadcaster struct {
	mu sync.Mutex

	Started  []*AnalysisStartedEvent
	Steps    []*SimulationStepEvent
	Complete []*AnalysisCompleteEvent
	Failed   []*AnalysisFailedEvent
}

// NewMockEventBroadcaster creates a new MockEventBroadcaster.
func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

// BroadcastAnalysisStarted records the event.
func (m *MockEventBroadcaster) BroadcastAnalysisStarted(event *AnalysisStartedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = append(m.Started, event)
	return nil
}

// BroadcastSimulationStep records the event.
func (m *MockEventBroadcaster) BroadcastSimulationStep(event *SimulationStepEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Steps = append(m.Steps, event)
	return nil
}

// BroadcastAnalysisComplete records the event.
func (m *MockEventBroadcaster) BroadcastAnalysisComplete(event *AnalysisCompleteEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Complete = append(m.Complete, event)
	return nil
}

// BroadcastAnalysisFailed records the event.
func (m *MockEventBroadcaster) BroadcastAnalysisFailed(event *AnalysisFailedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failed = append(m.Failed, event)
	return nil
}

// Counts returns the number of recorded started, step, complete and
// failed events.
func (m *MockEventBroadcaster) Counts() (started, steps, complete, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Started), len(m.Steps), len(m.Complete), len(m.Failed)
}

// Reset clears all recorded events.
func (m *MockEventBroadcaster) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = nil
	m.Steps = nil
	m.Complete = nil
	m.Failed = nil
}
