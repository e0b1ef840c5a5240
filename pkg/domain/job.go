// Package domain defines the plain value types shared by the tick core: the
// persisted key space, unit classifications and group phases.
package domain

import "strings"

// Job classifies a unit. It is derived from the unit's ID prefix the first
// time the unit is observed and never changes afterwards.
type Job string

// Known unit classifications.
const (
	JobUpgrader   Job = "Upgrader"
	JobStarter    Job = "Starter"
	JobBuilder    Job = "Builder"
	JobUnassigned Job = "Unassigned"
)

// JobSeparator separates the job prefix from the rest of a unit ID.
const JobSeparator = ":"

// JobFromID extracts the classification from an ID such as "Builder:1001".
// Unknown prefixes map to JobUnassigned.
func JobFromID(id string) Job {
	prefix, _, _ := strings.Cut(id, JobSeparator)
	switch Job(prefix) {
	case JobUpgrader, JobStarter, JobBuilder:
		return Job(prefix)
	default:
		return JobUnassigned
	}
}

func (j Job) String() string { return string(j) }
