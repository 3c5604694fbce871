package action

// Stateless is embedded by actions with no constructor arguments; they
// serialize to an empty ctor-parameter block.
type Stateless struct{ BaseAction }

// CtorParams implements the empty half of persistence.Persistable;
// concrete actions still supply ModulePath/ClassName/Version themselves.
func (Stateless) CtorParams() map[string]interface{} { return map[string]interface{}{} }

// Stateful is embedded by actions that persist a free-form state mapping
// across store/load cycles.
type Stateful struct {
	BaseAction
	State map[string]interface{}
}

// CtorParams persists State under the "state" key.
func (s *Stateful) CtorParams() map[string]interface{} {
	if s.State == nil {
		s.State = map[string]interface{}{}
	}
	return map[string]interface{}{"state": s.State}
}
