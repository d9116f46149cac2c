package inbound

import (
	"context"

	"github.com/shandysiswandi/apex/internal/security/entity"
	"github.com/shandysiswandi/apex/internal/security/usecase"
)

type uc interface {
	MFASetup(ctx context.Context, in usecase.MFASetupInput) (*usecase.MFASetupOutput, error)
	MFAConfirm(ctx context.Context, in usecase.MFAConfirmInput) (*usecase.MFAConfirmOutput, error)
	MFAChallenge(ctx context.Context, in usecase.MFAChallengeInput) (*usecase.MFAChallengeOutput, error)
	MFARequirement(ctx context.Context) (*usecase.MFARequirementOutput, error)
	MFADisable(ctx context.Context) error
	MFAStatus(ctx context.Context) (*usecase.MFAStatusOutput, error)

	TrustedDeviceList(ctx context.Context) ([]usecase.DeviceView, error)
	TrustedDeviceRemove(ctx context.Context, in usecase.TrustedDeviceRemoveInput) error

	AuditEventList(ctx context.Context, in usecase.AuditEventListInput) ([]entity.AuditEvent, error)
	RecordAuditEvent(ctx context.Context, in usecase.RecordAuditEventInput) error
}
