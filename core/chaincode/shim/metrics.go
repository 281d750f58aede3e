/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import "github.com/hyperledger/fabric-chaincode-shim/common/metrics"

var (
	tasksStarted = metrics.CounterOpts{
		Namespace:  "chaincode",
		Subsystem:  "shim",
		Name:       "tasks_started",
		Help:       "The number of INIT and TRANSACTION tasks started.",
		LabelNames: []string{"type"},
	}
	tasksCompleted = metrics.CounterOpts{
		Namespace:  "chaincode",
		Subsystem:  "shim",
		Name:       "tasks_completed",
		Help:       "The number of tasks that reached a terminal state.",
		LabelNames: []string{"type", "success"},
	}
	taskDuration = metrics.HistogramOpts{
		Namespace:  "chaincode",
		Subsystem:  "shim",
		Name:       "task_duration",
		Help:       "The time from task start to its terminal message.",
		LabelNames: []string{"type", "success"},
	}
	activeTasksGauge = metrics.GaugeOpts{
		Namespace: "chaincode",
		Subsystem: "shim",
		Name:      "active_tasks",
		Help:      "The number of tasks currently running.",
	}
	peerRequests = metrics.CounterOpts{
		Namespace:  "chaincode",
		Subsystem:  "shim",
		Name:       "peer_requests",
		Help:       "The number of requests sent to the peer by tasks.",
		LabelNames: []string{"type", "success"},
	}
	protocolAnomalies = metrics.CounterOpts{
		Namespace:  "chaincode",
		Subsystem:  "shim",
		Name:       "protocol_anomalies",
		Help:       "The number of inbound messages that could not be routed.",
		LabelNames: []string{"type"},
	}
)

type TaskMetrics struct {
	TasksStarted      metrics.Counter
	TasksCompleted    metrics.Counter
	TaskDuration      metrics.Histogram
	ActiveTasks       metrics.Gauge
	PeerRequests      metrics.Counter
	ProtocolAnomalies metrics.Counter
}

func NewTaskMetrics(p metrics.Provider) *TaskMetrics {
	return &TaskMetrics{
		TasksStarted:      p.NewCounter(tasksStarted),
		TasksCompleted:    p.NewCounter(tasksCompleted),
		TaskDuration:      p.NewHistogram(taskDuration),
		ActiveTasks:       p.NewGauge(activeTasksGauge),
		PeerRequests:      p.NewCounter(peerRequests),
		ProtocolAnomalies: p.NewCounter(protocolAnomalies),
	}
}
