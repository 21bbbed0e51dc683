// Package reminder aggregates the jobs due on a day into one reminder per
// customer.
package reminder

import (
	"maps"
	"slices"
	"strings"

	"pitstop/internal/types"
)

// Group is the set of due jobs belonging to one customer, ordered by
// ascending StartTime (JobID breaks ties).
type Group struct {
	CustomerID string
	Jobs       []types.MaintenanceJob
}

// JobIDs returns the IDs of the jobs in the group, in group order.
func (g Group) JobIDs() []string {
	ids := make([]string, len(g.Jobs))
	for i, job := range g.Jobs {
		ids[i] = job.JobID
	}
	return ids
}

// GroupDueJobs partitions jobs by CustomerID. The result is ordered by
// CustomerID so that reminders are produced in a reproducible order.
// Duplicate JobIDs in the input are collapsed to their first occurrence.
func GroupDueJobs(jobs []types.MaintenanceJob) []Group {
	if len(jobs) == 0 {
		return nil
	}

	byCustomer := make(map[string][]types.MaintenanceJob)
	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if _, dup := seen[job.JobID]; dup {
			continue
		}
		seen[job.JobID] = struct{}{}
		byCustomer[job.CustomerID] = append(byCustomer[job.CustomerID], job)
	}

	groups := make([]Group, 0, len(byCustomer))
	for _, customerID := range slices.Sorted(maps.Keys(byCustomer)) {
		customerJobs := byCustomer[customerID]
		slices.SortStableFunc(customerJobs, compareJobs)
		groups = append(groups, Group{CustomerID: customerID, Jobs: customerJobs})
	}
	return groups
}

func compareJobs(a, b types.MaintenanceJob) int {
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c
	}
	return strings.Compare(a.JobID, b.JobID)
}
