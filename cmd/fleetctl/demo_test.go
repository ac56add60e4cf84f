package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildDemoScenarioWiresAFullyFunctionalFleet(t *testing.T) {
	s, err := buildDemoScenario(zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Len(t, s.tasks, 3)
	require.NotEmpty(t, s.orchestrator.RobotInfos())

	s.orchestrator.SetPendingTasks(s.tasks)
	require.False(t, s.orchestrator.IsAllTasksComplete())

	for i := 0; i < 20000 && !s.orchestrator.IsAllTasksComplete(); i++ {
		s.orchestrator.StepStrategic()
		s.orchestrator.StepPhysics()
	}
	require.True(t, s.orchestrator.IsAllTasksComplete())
}
