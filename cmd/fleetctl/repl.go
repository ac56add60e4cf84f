package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/orchestrator"
	"github.com/elektrokombinacija/fleetctl/internal/task"
)

// runRepl starts the orchestrator in the background and reads §6's
// interactive commands (inject, status, stats, help, quit) from stdin
// until the user quits or ctx is cancelled.
func runRepl(ctx context.Context, orch *orchestrator.Orchestrator, nav *navgraph.NavGraph, log *zap.SugaredLogger) {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		orch.Run(runCtx)
		close(done)
	}()

	fmt.Println("fleetctl interactive mode. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "help":
			printReplHelp()
		case "inject":
			handleInject(fields, orch, nav, rng, log)
		case "status":
			printStatus(orch)
		case "stats":
			printStats(orch)
		case "quit", "exit":
			cancel()
			<-done
			return
		default:
			fmt.Printf("unrecognized command %q, type 'help' for a list\n", fields[0])
		}
	}

	cancel()
	<-done
}

func printReplHelp() {
	fmt.Println(`commands:
  inject <N>   inject N new random tasks into the fleet
  status       show each robot's current state
  stats        show tick counters and completed-task count
  help         show this message
  quit         stop the simulation and exit`)
}

func handleInject(fields []string, orch *orchestrator.Orchestrator, nav *navgraph.NavGraph, rng *rand.Rand, log *zap.SugaredLogger) {
	if len(fields) != 2 {
		fmt.Println("usage: inject <N>")
		return
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n <= 0 {
		fmt.Println("usage: inject <N>, N must be a positive integer")
		return
	}
	if len(nav.Nodes) < 2 {
		fmt.Println("nav graph has too few nodes to inject a task")
		return
	}

	tasks := make([]task.Task, 0, n)
	for i := 0; i < n; i++ {
		src := nav.Nodes[rng.Intn(len(nav.Nodes))].ID
		dst := nav.Nodes[rng.Intn(len(nav.Nodes))].ID
		for dst == src {
			dst = nav.Nodes[rng.Intn(len(nav.Nodes))].ID
		}
		tasks = append(tasks, task.Task{ID: fmt.Sprintf("inj-%d-%d", time.Now().UnixNano(), i), SourceNode: src, DestNode: dst})
	}
	orch.InjectTasks(tasks)
	log.Infow("injected tasks via REPL", "count", n)
	fmt.Printf("injected %d tasks\n", n)
}

func printStatus(orch *orchestrator.Orchestrator) {
	infos := orch.RobotInfos()
	if len(infos) == 0 {
		fmt.Println("no robots registered")
		return
	}
	for _, info := range infos {
		fmt.Printf("%-12s status=%-8s driver=%-14s battery=%5.1f%% itinerary=%d assigned=%d node=%d\n",
			info.ID, info.Status, info.DriverState, info.BatteryPercent, info.ItineraryLength, info.AssignedTaskLen, info.CurrentNode)
	}
}

func printStats(orch *orchestrator.Orchestrator) {
	s := orch.Stats()
	fmt.Printf("strategic_ticks=%d physics_ticks=%d obstacle_ticks=%d completed_tasks=%d simulated_time=%s\n",
		s.StrategicTicks, s.PhysicsTicks, s.ObstacleTicks, s.CompletedTasks, s.SimulatedTime)
	if orch.IsAllTasksComplete() {
		fmt.Println("all tasks complete")
	}
}
