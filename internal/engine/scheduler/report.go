package scheduler

import "go.trai.ch/mill/internal/engine/task"

// Report summarizes a scheduler run.
type Report struct {
	// Tasks is every planned task, predecessors first.
	Tasks []*task.Task
	// Executed lists the tasks that ran to completion or failure, in completion order.
	Executed []*task.Task
	// Failed lists every task that failed.
	Failed []Failure
}

// Failure is a task that failed and the error it failed with.
type Failure struct {
	Task *task.Task
	Err  error
}

// OK reports whether no task failed.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Built returns the names of the tasks that were rebuilt during the run.
func (r *Report) Built() []string {
	var names []string
	for _, t := range r.Executed {
		if t.Built() {
			names = append(names, t.Name().String())
		}
	}
	return names
}
