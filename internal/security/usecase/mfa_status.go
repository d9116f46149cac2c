package usecase

import "context"

type MFAStatusOutput struct {
	Enabled      bool
	PendingSetup bool
	Devices      []DeviceView
}

func (s *Usecase) MFAStatus(ctx context.Context) (*MFAStatusOutput, error) {
	ctx, span := s.startSpan(ctx, "MFAStatus")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.getUserMFA(ctx, clm.UserID)
	if err != nil {
		return nil, err
	}

	devices, err := s.deviceViews(ctx, clm.UserID)
	if err != nil {
		return nil, err
	}

	return &MFAStatusOutput{
		Enabled:      m.IsEnabled(),
		PendingSetup: m.HasSecret() && !m.Enabled,
		Devices:      devices,
	}, nil
}
