package tasks

// regenWaitTicks is how long a depleted source may take to regenerate before
// a harvest on it is abandoned.
const regenWaitTicks = 10

// Harvest gathers energy from a source until the unit is full.
type Harvest struct {
	SourceID string `json:"source_id,omitempty"`
}

func (*Harvest) sealed() {}

// Kind returns KindHarvest.
func (*Harvest) Kind() Kind { return KindHarvest }

// Name returns "Harvest".
func (*Harvest) Name() string { return "Harvest" }

// Start picks the first source in the unit's region that still holds energy.
func (t *Harvest) Start(a Actor, env Env) {
	if env.World == nil {
		return
	}
	for _, src := range env.World.Sources(a.Pos().Region) {
		if src.Energy() > 0 {
			t.SourceID = src.ID()
			return
		}
	}
}

// Execute moves the unit next to its source or harvests from it.
func (t *Harvest) Execute(a Actor, env Env) error {
	if t.SourceID == "" || env.World == nil {
		return ErrMissingValue
	}
	src, err := env.World.LookupSource(t.SourceID)
	if err != nil {
		return lookupErr(t.Name(), t.SourceID, err)
	}
	if src.Energy() == 0 && src.TicksToRegeneration() > regenWaitTicks {
		return ErrInvalid
	}
	if a.CarryTotal() >= a.CarryCapacity() {
		return ErrInvalid
	}
	if !a.Pos().IsNearTo(src.Pos()) {
		report(env, t, a, "move", a.MoveTo(src.Pos()))
		return nil
	}
	report(env, t, a, "harvest", a.Harvest(t.SourceID))
	return nil
}

var _ Task = (*Harvest)(nil)
