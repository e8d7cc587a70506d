package permissions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/courierhq/fieldlink/internal/permissions"
)

type fakePrompter struct {
	grants  map[permissions.Permission]bool
	err     error
	prompts []permissions.Permission
}

func (f *fakePrompter) Prompt(_ context.Context, p permissions.Permission) (bool, error) {
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return false, f.err
	}
	return f.grants[p], nil
}

func available() bool   { return true }
func unavailable() bool { return false }

func TestRequestNoTransport(t *testing.T) {
	t.Parallel()

	prompter := &fakePrompter{}
	g := permissions.NewGatekeeper(permissions.Platform{
		Model:    permissions.ModelGranular,
		Prompter: prompter,
	}, unavailable, zerolog.Nop())

	assert.False(t, g.Request(context.Background()))
	assert.Empty(t, prompter.prompts, "no prompt may be issued without a transport")
}

func TestRequestModelNone(t *testing.T) {
	t.Parallel()

	prompter := &fakePrompter{}
	g := permissions.NewGatekeeper(permissions.Platform{
		Model:    permissions.ModelNone,
		Prompter: prompter,
	}, available, zerolog.Nop())

	assert.True(t, g.Request(context.Background()))
	assert.Empty(t, prompter.prompts)
}

func TestRequestModelLegacy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		granted bool
	}{
		{name: "granted", granted: true},
		{name: "denied", granted: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			prompter := &fakePrompter{grants: map[permissions.Permission]bool{
				permissions.PermissionCoarseLocation: tt.granted,
			}}
			g := permissions.NewGatekeeper(permissions.Platform{
				Model:    permissions.ModelLegacy,
				Prompter: prompter,
			}, available, zerolog.Nop())

			assert.Equal(t, tt.granted, g.Request(context.Background()))
			assert.Equal(t, []permissions.Permission{permissions.PermissionCoarseLocation}, prompter.prompts)
		})
	}
}

func TestRequestModelGranularAllGranted(t *testing.T) {
	t.Parallel()

	prompter := &fakePrompter{grants: map[permissions.Permission]bool{
		permissions.PermissionScan:         true,
		permissions.PermissionConnect:      true,
		permissions.PermissionFineLocation: true,
	}}
	g := permissions.NewGatekeeper(permissions.Platform{
		Model:    permissions.ModelGranular,
		Prompter: prompter,
	}, available, zerolog.Nop())

	assert.True(t, g.Request(context.Background()))
	assert.Len(t, prompter.prompts, 3)
}

func TestRequestModelGranularPartialDenial(t *testing.T) {
	t.Parallel()

	prompter := &fakePrompter{grants: map[permissions.Permission]bool{
		permissions.PermissionScan:         true,
		permissions.PermissionConnect:      false,
		permissions.PermissionFineLocation: true,
	}}
	g := permissions.NewGatekeeper(permissions.Platform{
		Model:    permissions.ModelGranular,
		Prompter: prompter,
	}, available, zerolog.Nop())

	assert.False(t, g.Request(context.Background()))
}

func TestRequestPrompterErrorIsDenial(t *testing.T) {
	t.Parallel()

	prompter := &fakePrompter{err: errors.New("prompt service unavailable")}
	g := permissions.NewGatekeeper(permissions.Platform{
		Model:    permissions.ModelLegacy,
		Prompter: prompter,
	}, available, zerolog.Nop())

	assert.False(t, g.Request(context.Background()))
}

func TestParseModel(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]permissions.Model{
		"none":     permissions.ModelNone,
		"legacy":   permissions.ModelLegacy,
		"granular": permissions.ModelGranular,
	} {
		got, ok := permissions.ParseModel(name)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := permissions.ParseModel("android-12")
	assert.False(t, ok)
}
