// Package roles implements the three specialist handlers behind the single
// Lucy persona: PhotoVerifier (B1), BusinessCoach (E4A, E4B, E6) and
// Underwriter (B4, L3, L5, OFFER). Role selection is internal to the engine;
// replies are stitched into one voice by the persona pass regardless of
// which role produced them.
package roles

import (
	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

type registryImpl struct {
	photoVerifier contractx.Handler
	businessCoach contractx.Handler
	underwriter   contractx.Handler
}

func (r *registryImpl) PhotoVerifier() contractx.Handler { return r.photoVerifier }
func (r *registryImpl) BusinessCoach() contractx.Handler { return r.businessCoach }
func (r *registryImpl) Underwriter() contractx.Handler   { return r.underwriter }

// NewRegistry wires the three deterministic handlers.
func NewRegistry() contractx.Registry {
	return &registryImpl{
		photoVerifier: &PhotoVerifier{},
		businessCoach: &BusinessCoach{},
		underwriter:   &Underwriter{},
	}
}

// ForRole resolves a handler by role type.
func ForRole(reg contractx.Registry, role contractx.RoleType) (contractx.Handler, bool) {
	switch role {
	case contractx.RolePhotoVerifier:
		return reg.PhotoVerifier(), true
	case contractx.RoleBusinessCoach:
		return reg.BusinessCoach(), true
	case contractx.RoleUnderwriter:
		return reg.Underwriter(), true
	default:
		return nil, false
	}
}
