package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"creditbot/internal/interfaces"
)

// broadcastRate paces outbound fan-out to stay under the transport's
// per-second ceiling.
var broadcastRate = rate.Limit(20)

// BroadcastResult summarizes one fan-out pass. Failed counts recipients the
// pass could not serve at all; NotifyFailed counts recipients whose grant
// landed but whose notification did not.
type BroadcastResult struct {
	Total        int
	Sent         int
	Failed       int
	Granted      int
	Capped       int
	NotifyFailed int
}

// BroadcastUsecase fans an announcement or a bulk credit grant out to every
// non-banned user. Individual recipient failures are counted and skipped;
// one dead chat never aborts the batch.
type BroadcastUsecase struct {
	users     interfaces.UserStore
	ledger    *LedgerUsecase
	messenger interfaces.Messenger
	limiter   *rate.Limiter
}

func NewBroadcastUsecase(users interfaces.UserStore, ledger *LedgerUsecase, messenger interfaces.Messenger) *BroadcastUsecase {
	return &BroadcastUsecase{
		users:     users,
		ledger:    ledger,
		messenger: messenger,
		limiter:   rate.NewLimiter(broadcastRate, 1),
	}
}

// Announce sends text to every non-banned user.
func (uc *BroadcastUsecase) Announce(ctx context.Context, text string) (*BroadcastResult, error) {
	ids, err := uc.users.ActiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load broadcast recipients: %w", err)
	}

	result := &BroadcastResult{Total: len(ids)}
	for _, id := range ids {
		if err := uc.limiter.Wait(ctx); err != nil {
			return result, err
		}
		if err := uc.messenger.SendText(id, text); err != nil {
			result.Failed++
			log.Warn().Err(err).Int64("user_id", id).Msg("broadcast delivery failed")
			continue
		}
		result.Sent++
	}
	return result, nil
}

// GrantAll credits every non-banned user by amount and notifies each one.
// Balances clamp at the cap; recipients already at the cap are counted as
// capped, not failed.
func (uc *BroadcastUsecase) GrantAll(ctx context.Context, amount int) (*BroadcastResult, error) {
	ids, err := uc.users.ActiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load grant recipients: %w", err)
	}

	result := &BroadcastResult{Total: len(ids)}
	for _, id := range ids {
		before, err := uc.ledger.Balance(ctx, id)
		if err != nil {
			result.Failed++
			continue
		}
		after, err := uc.ledger.Credit(ctx, id, amount)
		if err != nil {
			result.Failed++
			log.Warn().Err(err).Int64("user_id", id).Msg("bulk grant failed")
			continue
		}
		result.Granted++
		if after-before < amount {
			result.Capped++
		}

		if err := uc.limiter.Wait(ctx); err != nil {
			return result, err
		}
		msg := fmt.Sprintf("You received *%d* credits! New balance: *%d*", after-before, after)
		if err := uc.messenger.SendText(id, msg); err != nil {
			result.NotifyFailed++
			log.Warn().Err(err).Int64("user_id", id).Msg("grant notification failed")
		} else {
			result.Sent++
		}
	}
	return result, nil
}
