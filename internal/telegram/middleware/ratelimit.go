package middleware

import (
	"sync"
	"time"

	"github.com/futig/advisor-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	warningInterval   = 30 * time.Second
	cleanupInterval   = 10 * time.Minute
	inactiveThreshold = time.Hour
)

// visitor tracks rate limit state for a single user
type visitor struct {
	limiter       *rate.Limiter
	lastSeen      time.Time
	lastWarningAt time.Time
}

// RateLimiterMiddleware limits requests per user with a token bucket
type RateLimiterMiddleware struct {
	mu       sync.Mutex
	visitors map[int64]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
	logger   *zap.Logger
	sender   Sender
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiterMiddleware creates a new rate limiter middleware
func NewRateLimiterMiddleware(
	requestsPerMinute int,
	burstSize int,
	logger *zap.Logger,
	sender Sender,
) *RateLimiterMiddleware {
	rl := &RateLimiterMiddleware{
		visitors: make(map[int64]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(max(requestsPerMinute, 1))),
		burst:    max(burstSize, 1),
		now:      time.Now,
		logger:   logger,
		sender:   sender,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Handle drops the update when the user is over the limit
func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	userID, chatID := updateIDs(update)
	if userID == 0 {
		next(update)
		return
	}

	allowed, warn := rl.allow(userID)
	if !allowed {
		rl.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID),
		)
		if warn && chatID != 0 {
			rl.sendWarning(chatID)
		}
		return
	}

	next(update)
}

// allow reports whether the request may pass and whether a warning is due
func (rl *RateLimiterMiddleware) allow(userID int64) (allowed, warn bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[userID] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return true, false
	}

	if now.Sub(v.lastWarningAt) > warningInterval {
		v.lastWarningAt = now
		return false, true
	}
	return false, false
}

func (rl *RateLimiterMiddleware) sendWarning(chatID int64) {
	if _, err := rl.sender.Send(tgbotapi.NewMessage(chatID, render.ErrRateLimited)); err != nil {
		rl.logger.Error("failed to send rate limit warning",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

func (rl *RateLimiterMiddleware) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup forgets users idle for longer than inactiveThreshold
func (rl *RateLimiterMiddleware) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for userID, v := range rl.visitors {
		if now.Sub(v.lastSeen) > inactiveThreshold {
			delete(rl.visitors, userID)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *RateLimiterMiddleware) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
