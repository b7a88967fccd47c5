// Package stage holds the static stage table and the transition engine. The
// table maps every stage to its owning role, the fields it must populate
// before advancing, its successor, and the question Lucy opens it with.
package stage

import (
	"fmt"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

// Definition describes one stage of the chain.
type Definition struct {
	Stage    contractx.Stage
	Owner    contractx.RoleType
	Required []string
	Next     contractx.Stage
	Prompt   string
}

// Registry is the static stage table. Build it with NewRegistry; the default
// table is validated at construction, so a Registry in hand is always
// well-formed.
type Registry struct {
	order []contractx.Stage
	defs  map[contractx.Stage]Definition
}

func defaultDefinitions() []Definition {
	return []Definition{
		{
			Stage:    contractx.StageB1,
			Owner:    contractx.RolePhotoVerifier,
			Required: []string{contractx.FieldPhotoRef, contractx.FieldLocation},
			Next:     contractx.StageE4A,
			Prompt:   "To get started, please share 2 photos of your business (inside and outside) and tell me your location! 📸📍",
		},
		{
			Stage:    contractx.StageE4A,
			Owner:    contractx.RoleBusinessCoach,
			Required: []string{contractx.FieldBusinessType},
			Next:     contractx.StageE4B,
			Prompt:   "Now I'd love to learn more about you. What kind of business do you run? 💼",
		},
		{
			Stage:    contractx.StageE4B,
			Owner:    contractx.RoleBusinessCoach,
			Required: []string{contractx.FieldWhatTheyLove},
			Next:     contractx.StageB4,
			Prompt:   "And what do you love most about running your business? 💫",
		},
		{
			Stage:    contractx.StageB4,
			Owner:    contractx.RoleUnderwriter,
			Required: []string{contractx.FieldMonthlySales},
			Next:     contractx.StageE6,
			Prompt:   "Let's talk numbers. What are your typical sales — daily or monthly, whatever is easier for you? 📊",
		},
		{
			Stage:    contractx.StageE6,
			Owner:    contractx.RoleBusinessCoach,
			Required: []string{contractx.FieldChallenge},
			Next:     contractx.StageL3,
			Prompt:   "What's the biggest challenge holding your business back right now? 🛠️",
		},
		{
			Stage:    contractx.StageL3,
			Owner:    contractx.RoleUnderwriter,
			Required: []string{contractx.FieldLoanUses},
			Next:     contractx.StageL5,
			Prompt:   "What would you use the loan for? Stock, equipment, expansion, working capital? 🎯",
		},
		{
			Stage:    contractx.StageL5,
			Owner:    contractx.RoleUnderwriter,
			Required: []string{contractx.FieldReadiness},
			Next:     contractx.StageOffer,
			Prompt:   "I have everything I need. Are you ready to see your personalized loan offer? 🎉",
		},
		{
			// OFFER is special: advancing needs a computed offer plus an
			// explicit accept/reject decision, enforced by Advance.
			Stage:    contractx.StageOffer,
			Owner:    contractx.RoleUnderwriter,
			Required: []string{contractx.FieldDecision},
			Next:     contractx.StageAcceptance,
			Prompt:   "Here is your loan offer — reply \"yes\" to accept or \"no\" to decline.",
		},
		{
			Stage:  contractx.StageAcceptance,
			Owner:  contractx.RoleUnderwriter,
			Prompt: "Your application is complete. I'm always here if you need me! 😊",
		},
	}
}

// NewRegistry builds and validates the default stage table.
func NewRegistry() (*Registry, error) {
	return newRegistry(defaultDefinitions())
}

func newRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		order: make([]contractx.Stage, 0, len(defs)),
		defs:  make(map[contractx.Stage]Definition, len(defs)),
	}
	for _, def := range defs {
		if _, dup := r.defs[def.Stage]; dup {
			return nil, fmt.Errorf("%w: duplicate stage=%q", contractx.ErrInvalidTransition, def.Stage)
		}
		r.order = append(r.order, def.Stage)
		r.defs[def.Stage] = def
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNewRegistry panics on a misconfigured table. Registry errors are
// programming errors, caught at startup, never surfaced to customers.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks the table forms a strict linear chain ending in a single
// terminal stage, with every stage bound to a known role.
func (r *Registry) Validate() error {
	if len(r.order) == 0 {
		return fmt.Errorf("%w: empty stage table", contractx.ErrInvalidTransition)
	}

	terminals := 0
	for i, s := range r.order {
		def := r.defs[s]
		if !contractx.KnownStage(def.Stage) {
			return fmt.Errorf("%w: unknown stage=%q", contractx.ErrInvalidTransition, def.Stage)
		}
		switch def.Owner {
		case contractx.RolePhotoVerifier, contractx.RoleBusinessCoach, contractx.RoleUnderwriter:
		default:
			return fmt.Errorf("%w: stage=%q has unknown owner=%q", contractx.ErrInvalidTransition, def.Stage, def.Owner)
		}

		if def.Next == "" {
			terminals++
			if i != len(r.order)-1 {
				return fmt.Errorf("%w: stage=%q terminates mid-chain", contractx.ErrInvalidTransition, def.Stage)
			}
			continue
		}
		if i == len(r.order)-1 {
			return fmt.Errorf("%w: last stage=%q has successor=%q", contractx.ErrInvalidTransition, def.Stage, def.Next)
		}
		if def.Next != r.order[i+1] {
			return fmt.Errorf("%w: stage=%q successor=%q breaks the chain", contractx.ErrInvalidTransition, def.Stage, def.Next)
		}
		if len(def.Required) == 0 && def.Stage != contractx.StageAcceptance {
			return fmt.Errorf("%w: stage=%q requires no fields yet has a successor", contractx.ErrInvalidTransition, def.Stage)
		}
	}
	if terminals != 1 {
		return fmt.Errorf("%w: chain must end in exactly one terminal stage, got %d", contractx.ErrInvalidTransition, terminals)
	}
	return nil
}

// Definition returns the full entry for a stage.
func (r *Registry) Definition(s contractx.Stage) (Definition, bool) {
	def, ok := r.defs[s]
	return def, ok
}

// RequiredFields returns the fields a stage must populate before advancing.
func (r *Registry) RequiredFields(s contractx.Stage) []string {
	return r.defs[s].Required
}

// Next returns the successor stage; empty for the terminal stage.
func (r *Registry) Next(s contractx.Stage) contractx.Stage {
	return r.defs[s].Next
}

// Owner returns the role handling the stage.
func (r *Registry) Owner(s contractx.Stage) contractx.RoleType {
	return r.defs[s].Owner
}

// Prompt returns the opening question for the stage.
func (r *Registry) Prompt(s contractx.Stage) string {
	return r.defs[s].Prompt
}

// Stages returns the chain in order.
func (r *Registry) Stages() []contractx.Stage {
	return append([]contractx.Stage(nil), r.order...)
}
