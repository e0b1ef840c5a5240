package tasks

import "colonybot/internal/host"

// Transfer delivers carried energy to a structure.
type Transfer struct {
	TargetID string `json:"target_id,omitempty"`
}

func (*Transfer) sealed() {}

func (*Transfer) Kind() Kind   { return KindTransfer }
func (*Transfer) Name() string { return "Transfer" }

// Start picks the first structure in the unit's region with free capacity.
func (t *Transfer) Start(a Actor, env Env) {
	if env.World == nil {
		return
	}
	for _, s := range env.World.StructuresIn(a.Pos().Region) {
		if s.Energy() < s.EnergyCapacity() {
			t.TargetID = s.ID()
			return
		}
	}
}

func (t *Transfer) Execute(a Actor, env Env) error {
	if t.TargetID == "" || env.World == nil {
		return ErrMissingValue
	}
	target, err := env.World.LookupStructure(t.TargetID)
	if err != nil {
		return lookupErr(t.Name(), t.TargetID, err)
	}
	if a.CarryTotal() == 0 || target.Energy() >= target.EnergyCapacity() {
		return ErrInvalid
	}
	pos, err := target.Pos()
	if err != nil {
		return lookupErr(t.Name(), t.TargetID, err)
	}
	if !a.Pos().IsNearTo(pos) {
		report(env, t, a, "move", a.MoveTo(pos))
		return nil
	}
	report(env, t, a, "transfer", a.Transfer(t.TargetID), host.Full)
	return nil
}
