package service

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"context"

	"github.com/hashicorp/go-multierror"
)

// AuditFanout records every event in all of its logs.
type AuditFanout []port.AuditLog

func (f AuditFanout) Record(ctx context.Context, event domain.AuditEvent) error {
	var result error
	for _, l := range f {
		if err := l.Record(ctx, event); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}
