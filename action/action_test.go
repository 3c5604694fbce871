package action

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetstore.evalgo.org/permission"
)

type echoAction struct {
	Stateless
	fail bool
}

func (e *echoAction) Execute(_ Asset, _ Context, args map[string]interface{}) interface{} {
	if e.fail {
		panic("boom")
	}
	return args["x"]
}

func TestInvokeWrapsReturnValue(t *testing.T) {
	result := Invoke(&echoAction{}, nil, nil, map[string]interface{}{"x": 42})
	require.True(t, result.IsValid())
	assert.Equal(t, 42, result.Value())
}

func TestInvokeRecoversPanicAsError(t *testing.T) {
	result := Invoke(&echoAction{fail: true}, nil, nil, nil)
	require.True(t, result.IsError())
	assert.Equal(t, "boom", result.Message())
}

func TestCallResultThenOnError(t *testing.T) {
	v := Valid(1)
	doubled := v.Then(func(x interface{}) *CallResult { return Valid(x.(int) * 2) })
	assert.Equal(t, 2, doubled.Value())

	e := Failed("bad", "", "", nil)
	recovered := e.OnError(func(*CallResult) *CallResult { return Valid("fallback") })
	assert.Equal(t, "fallback", recovered.Value())

	unaffected := v.OnError(func(*CallResult) *CallResult { return Valid("never") })
	assert.Equal(t, 1, unaffected.Value())
}

func TestGetResultRaisesOnSentinel(t *testing.T) {
	e := Failed("kaboom", "", "", nil)
	_, err := e.GetResult(Raise)
	require.Error(t, err)

	fallback, err := e.GetResult("default")
	require.NoError(t, err)
	assert.Equal(t, "default", fallback)
}

// fakeRef is a minimal action.Reference test double: Resolve returns a
// fixed Asset, Update records whether it was called and with what args.
type fakeRef struct {
	asset       Asset
	resolveErr  error
	updateCalls []map[string]interface{}
	updateErr   error
}

func (r *fakeRef) Resolve(Context) (Asset, error) { return r.asset, r.resolveErr }

func (r *fakeRef) Update(_ Context, args map[string]interface{}) *CallResult {
	r.updateCalls = append(r.updateCalls, args)
	if r.updateErr != nil {
		return FromError(r.updateErr)
	}
	return Valid(nil)
}

func TestBaseActionUpdateDependencyCallsReferenceUpdate(t *testing.T) {
	ref := &fakeRef{}
	var base BaseAction
	err := base.UpdateDependency(nil, nil, ref)
	require.NoError(t, err)
	require.Len(t, ref.updateCalls, 1)
	assert.Empty(t, ref.updateCalls[0])
}

func TestBaseActionUpdateDependencyPropagatesFailure(t *testing.T) {
	ref := &fakeRef{updateErr: errors.New("rebuild failed")}
	var base BaseAction
	err := base.UpdateDependency(nil, nil, ref)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild failed")
}

// staleAsset is a minimal StaleChecker+Asset test double for
// UpdateRequired's default staleness test.
type staleAsset struct {
	phony      bool
	result     *CallResult
	lastBuild  time.Time
	lastMod    time.Time
	references []Reference
}

func (a *staleAsset) ID() int64                            { return 1 }
func (a *staleAsset) Args() map[string]interface{}         { return nil }
func (a *staleAsset) Meta() map[string]interface{}         { return nil }
func (a *staleAsset) Permissions() *permission.Permissions { return nil }
func (a *staleAsset) References() []Reference              { return a.references }
func (a *staleAsset) Phony() bool                           { return a.phony }
func (a *staleAsset) Result() *CallResult                   { return a.result }
func (a *staleAsset) LastBuild() time.Time                  { return a.lastBuild }
func (a *staleAsset) LastModified() time.Time           { return a.lastMod }

func TestBaseActionUpdateRequiredPhonyAlwaysStale(t *testing.T) {
	var base BaseAction
	a := &staleAsset{phony: true, result: Valid(1), lastBuild: time.Now(), lastMod: time.Now().Add(-time.Hour)}
	required, err := base.UpdateRequired(a, nil)
	require.NoError(t, err)
	assert.True(t, required)
}

func TestBaseActionUpdateRequiredFreshNotStale(t *testing.T) {
	var base BaseAction
	now := time.Now()
	a := &staleAsset{result: Valid(1), lastBuild: now, lastMod: now.Add(-time.Hour)}
	required, err := base.UpdateRequired(a, nil)
	require.NoError(t, err)
	assert.False(t, required)
}

func TestBaseActionUpdateRequiredStaleDependencyPropagates(t *testing.T) {
	var base BaseAction
	now := time.Now()
	dep := &staleAsset{result: Valid(1), lastBuild: now.Add(-time.Hour), lastMod: now}
	a := &staleAsset{
		result:     Valid(1),
		lastBuild:  now,
		lastMod:    now.Add(-time.Hour),
		references: []Reference{&fakeRef{asset: dep}},
	}
	required, err := base.UpdateRequired(a, nil)
	require.NoError(t, err)
	assert.True(t, required)
}

func TestDispatchSelectsFirstMatchingVariant(t *testing.T) {
	d := NewDispatch("greet")
	d.Register(&Variant{
		Name:   "by-name",
		Params: []Param{{Name: "name", Predicate: IsA("")}},
		Fn: func(_ Asset, _ Context, args map[string]interface{}) interface{} {
			return "hello " + args["name"].(string)
		},
	})
	d.Register(&Variant{
		Name:   "by-id",
		Params: []Param{{Name: "id", Predicate: InRange(0, 100)}},
		Fn: func(_ Asset, _ Context, args map[string]interface{}) interface{} {
			return "id"
		},
	})

	assert.Equal(t, "hello bob", d.Call(nil, nil, map[string]interface{}{"name": "bob"}))
	assert.Equal(t, "id", d.Call(nil, nil, map[string]interface{}{"id": 7}))

	out := d.Call(nil, nil, map[string]interface{}{"id": 999})
	err, ok := out.(error)
	require.True(t, ok)
	assert.True(t, errors.Is(err, ErrNoVariant))
}

func TestDispatchRejectsUndeclaredArgumentKeys(t *testing.T) {
	d := NewDispatch("greet")
	d.Register(&Variant{
		Name:   "by-name",
		Params: []Param{{Name: "name", Predicate: IsA("")}},
		Fn: func(_ Asset, _ Context, args map[string]interface{}) interface{} {
			return "hello " + args["name"].(string)
		},
	})

	out := d.Call(nil, nil, map[string]interface{}{"name": "bob", "extra": 1})
	err, ok := out.(error)
	require.True(t, ok)
	assert.True(t, errors.Is(err, ErrNoVariant))
}

func TestPredicateCombinators(t *testing.T) {
	p := When(IsA(0), InRange(1, 10))
	assert.True(t, p(5, true))
	assert.False(t, p(50, true))

	either := Either(IsA(""), IsA(0))
	assert.True(t, either("x", true))
	assert.True(t, either(1, true))
	assert.False(t, either(1.5, true))

	oneOf := OneOf(IsA(""), IsA(0))
	assert.True(t, oneOf("x", true))

	opt := Optional(IsA(0))
	assert.True(t, opt(nil, false))
	assert.False(t, opt("x", true))
}
