package service

import (
	"context"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// publicIDAttempts bounds the collision-retry loop. At six random digits the
// space holds a million ids per prefix; twenty draws failing means the space
// is effectively exhausted and registration must stop.
const publicIDAttempts = 20

// allocatePublicID draws candidates until one is free in BOTH entity tables.
// The id space is shared across workers and companies, so a candidate taken
// by either kind is rejected. Per-table unique indexes are the backstop for
// two registrations racing on the same candidate.
func (s *Service) allocatePublicID(ctx context.Context, prefix byte) (id.PublicID, error) {
	for i := 0; i < publicIDAttempts; i++ {
		candidate, err := id.RandomPublicID(prefix)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "draw public id")
		}
		taken, err := s.workers.PublicIDTaken(ctx, candidate)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "check public id against workers")
		}
		if taken {
			continue
		}
		taken, err = s.companies.PublicIDTaken(ctx, candidate)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "check public id against companies")
		}
		if taken {
			continue
		}
		return candidate, nil
	}
	return "", dErrors.New(dErrors.CodeInternal, "public id space exhausted")
}
