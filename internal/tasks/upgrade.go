package tasks

const upgradeRange = 3

// Upgrade spends carried energy on the region controller.
type Upgrade struct {
	ControllerID string `json:"controller_id,omitempty"`
}

func (*Upgrade) sealed() {}

func (*Upgrade) Kind() Kind   { return KindUpgrade }
func (*Upgrade) Name() string { return "Upgrade" }

// Start resolves the controller of the unit's region.
func (t *Upgrade) Start(a Actor, env Env) {
	if env.World == nil {
		return
	}
	if ctrl, ok := env.World.Controller(a.Pos().Region); ok {
		t.ControllerID = ctrl.ID()
	}
}

func (t *Upgrade) Execute(a Actor, env Env) error {
	if t.ControllerID == "" || env.World == nil {
		return ErrMissingValue
	}
	ctrl, err := env.World.LookupController(t.ControllerID)
	if err != nil {
		return lookupErr(t.Name(), t.ControllerID, err)
	}
	if a.CarryTotal() == 0 {
		return ErrInvalid
	}
	if !a.Pos().InRangeTo(ctrl.Pos(), upgradeRange) {
		report(env, t, a, "move", a.MoveTo(ctrl.Pos()))
		return nil
	}
	report(env, t, a, "upgrade", a.UpgradeController(t.ControllerID))
	return nil
}
