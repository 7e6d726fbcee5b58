package presence

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/relaychat/coordinator/src/types"
)

// OnlineSource is the slice of the connection registry this
// projection reads from.
type OnlineSource interface {
	OnlineUsers() []string
}

// Service is a read-only projection answering "who is online".
// It reads the registry live on every call, so it can never diverge
// from the connection state.
type Service struct {
	registry  OnlineSource
	directory types.UserDirectory
	logger    zerolog.Logger
}

// New creates a presence projection over the given registry.
func New(registry OnlineSource, directory types.UserDirectory, logger zerolog.Logger) *Service {
	return &Service{
		registry:  registry,
		directory: directory,
		logger:    logger.With().Str("component", "presence").Logger(),
	}
}

// OnlineUsers returns the online users with display metadata from the
// user directory. A failed or empty lookup degrades to an id-only
// entry instead of failing the whole query.
func (s *Service) OnlineUsers(ctx context.Context) []types.UserProfile {
	profiles := lo.Map(s.registry.OnlineUsers(), func(userID string, _ int) types.UserProfile {
		profile, err := s.directory.Resolve(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("directory lookup failed")
		}
		if profile == nil {
			return types.UserProfile{ID: userID, Username: userID}
		}
		return *profile
	})

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Username < profiles[j].Username })
	return profiles
}
