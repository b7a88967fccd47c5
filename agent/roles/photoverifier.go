package roles

import (
	"context"
	"fmt"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

// PhotoVerifier owns B1: it checks that a photo reference and a location have
// been captured and asks for whichever is still missing.
type PhotoVerifier struct{}

var _ contractx.Handler = (*PhotoVerifier)(nil)

func (v *PhotoVerifier) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	if req.Stage != contractx.StageB1 {
		return contractx.HandlerResponse{}, fmt.Errorf("%w: photo verifier does not own stage=%q", contractx.ErrValidation, req.Stage)
	}

	_, hasPhoto := contractx.FieldStringSlice(req.Fields, contractx.FieldPhotoRef)
	location, hasLocation := contractx.FieldString(req.Fields, contractx.FieldLocation)

	switch {
	case hasPhoto && hasLocation:
		return contractx.HandlerResponse{
			Reply: fmt.Sprintf("Perfect, I can see your business at %s! 📸 Photos received and verified.", location),
		}, nil
	case hasLocation:
		return contractx.HandlerResponse{
			Reply: fmt.Sprintf("Thanks for sharing your location: %s! 📍 Now, could you send me a photo of your shop — one inside view showing your stock and one outside view of the front?", location),
		}, nil
	case hasPhoto:
		return contractx.HandlerResponse{
			Reply: "Great photos! 📸 One more thing — what's your exact location? (market name, lane or area)",
		}, nil
	default:
		return contractx.HandlerResponse{
			Reply: "I'd love to see your business! Please share 2 photos of your shop (inside and outside) and tell me your location. 📸📍",
		}, nil
	}
}
