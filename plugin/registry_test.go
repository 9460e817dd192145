package plugin

import (
	"context"
	"log/slog"
	"testing"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/rolematrix"
)

// testPlugin implements Plugin + MatrixSaved + AfterCheck.
type testPlugin struct {
	matrixSavedCalled bool
	afterCheckCalled  bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnMatrixSaved(_ context.Context, _ *rolematrix.Matrix) error {
	t.matrixSavedCalled = true
	return nil
}

func (t *testPlugin) OnAfterCheck(_ context.Context, _, _ any) error {
	t.afterCheckCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch MatrixSaved to testPlugin only.
	reg.EmitMatrixSaved(ctx, rolematrix.New("fac_1"))
	if !tp.matrixSavedCalled {
		t.Fatal("OnMatrixSaved was not called")
	}

	// Should dispatch AfterCheck.
	reg.EmitAfterCheck(ctx, nil, nil)
	if !tp.afterCheckCalled {
		t.Fatal("OnAfterCheck was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeCheck(ctx, nil)
	reg.EmitMatrixRoleReset(ctx, "fac_1", catalog.RoleStaff)
	reg.EmitShutdown(ctx)
}
