package stage

import (
	"errors"
	"reflect"
	"testing"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

func TestNewRegistryDefaultTableIsValid(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if got := r.Stages(); !reflect.DeepEqual(got, contractx.StageOrder) {
		t.Fatalf("Stages() = %v, want the canonical chain", got)
	}
}

func TestRegistryOwners(t *testing.T) {
	t.Parallel()

	r := MustNewRegistry()
	cases := map[contractx.Stage]contractx.RoleType{
		contractx.StageB1:         contractx.RolePhotoVerifier,
		contractx.StageE4A:        contractx.RoleBusinessCoach,
		contractx.StageE4B:        contractx.RoleBusinessCoach,
		contractx.StageB4:         contractx.RoleUnderwriter,
		contractx.StageE6:         contractx.RoleBusinessCoach,
		contractx.StageL3:         contractx.RoleUnderwriter,
		contractx.StageL5:         contractx.RoleUnderwriter,
		contractx.StageOffer:      contractx.RoleUnderwriter,
		contractx.StageAcceptance: contractx.RoleUnderwriter,
	}
	for stage, want := range cases {
		if got := r.Owner(stage); got != want {
			t.Fatalf("Owner(%s) = %q, want %q", stage, got, want)
		}
	}
}

func TestRegistryValidateRejectsBrokenChain(t *testing.T) {
	t.Parallel()

	defs := defaultDefinitions()
	defs[0].Next = contractx.StageB4
	if _, err := newRegistry(defs); !errors.Is(err, contractx.ErrInvalidTransition) {
		t.Fatalf("newRegistry() error = %v, want ErrInvalidTransition", err)
	}
}

func TestRegistryValidateRejectsMidChainTerminal(t *testing.T) {
	t.Parallel()

	defs := defaultDefinitions()
	defs[3].Next = ""
	if _, err := newRegistry(defs); !errors.Is(err, contractx.ErrInvalidTransition) {
		t.Fatalf("newRegistry() error = %v, want ErrInvalidTransition", err)
	}
}

func TestRegistryValidateRejectsUnknownOwner(t *testing.T) {
	t.Parallel()

	defs := defaultDefinitions()
	defs[1].Owner = "concierge"
	if _, err := newRegistry(defs); !errors.Is(err, contractx.ErrInvalidTransition) {
		t.Fatalf("newRegistry() error = %v, want ErrInvalidTransition", err)
	}
}

func TestRegistryValidateRejectsDuplicateStage(t *testing.T) {
	t.Parallel()

	defs := defaultDefinitions()
	defs = append(defs, defs[0])
	if _, err := newRegistry(defs); !errors.Is(err, contractx.ErrInvalidTransition) {
		t.Fatalf("newRegistry() error = %v, want ErrInvalidTransition", err)
	}
}
