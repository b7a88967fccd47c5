package roles

import (
	"context"
	"fmt"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

// BusinessCoach owns the rapport stages E4A, E4B and E6. It asks one question
// at a time and delivers a small tangible asset once the customer has named
// their challenge.
type BusinessCoach struct{}

var _ contractx.Handler = (*BusinessCoach)(nil)

func (c *BusinessCoach) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	switch req.Stage {
	case contractx.StageE4A:
		return c.handleBusinessType(req), nil
	case contractx.StageE4B:
		return c.handleWhatTheyLove(req), nil
	case contractx.StageE6:
		return c.handleChallenge(req), nil
	default:
		return contractx.HandlerResponse{}, fmt.Errorf("%w: business coach does not own stage=%q", contractx.ErrValidation, req.Stage)
	}
}

func (c *BusinessCoach) handleBusinessType(req contractx.HandlerRequest) contractx.HandlerResponse {
	if businessType, ok := contractx.FieldString(req.Fields, contractx.FieldBusinessType); ok {
		return contractx.HandlerResponse{
			Reply: fmt.Sprintf("A %s — wonderful! That takes real dedication. 💼", businessType),
		}
	}
	return contractx.HandlerResponse{
		Reply: "Tell me about your business — what kind do you run? A shop, kiosk, restaurant, salon, something else? 💼",
	}
}

func (c *BusinessCoach) handleWhatTheyLove(req contractx.HandlerRequest) contractx.HandlerResponse {
	if _, ok := contractx.FieldString(req.Fields, contractx.FieldWhatTheyLove); ok {
		return contractx.HandlerResponse{
			Reply: "I love that! That passion is exactly what makes businesses succeed. 🌟",
		}
	}
	return contractx.HandlerResponse{
		Reply: "What do you love most about running your business? The best partnerships start with what drives you! 💫",
	}
}

func (c *BusinessCoach) handleChallenge(req contractx.HandlerRequest) contractx.HandlerResponse {
	challenge, ok := contractx.FieldString(req.Fields, contractx.FieldChallenge)
	if !ok {
		return contractx.HandlerResponse{
			Reply: "What's the biggest challenge or obstacle holding you back right now? Once I understand it, I might even have a tool for you. 🛠️",
		}
	}

	businessType, _ := contractx.FieldString(req.Fields, contractx.FieldBusinessType)
	assetName, asset := BuildAsset(challenge, businessType)
	return contractx.HandlerResponse{
		Reply: fmt.Sprintf("That's a real challenge, and you're not alone in it. Here's a %s to get you started:\n\n%s", assetName, asset),
	}
}
