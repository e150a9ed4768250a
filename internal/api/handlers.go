package api

import (
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/events"
	"github.com/terraincognita07/boardkeeper/internal/services"
)

const (
	defaultAuthTokenTTL  = 7 * 24 * time.Hour
	rememberAuthTokenTTL = 30 * 24 * time.Hour
)

// StatsSource is implemented by publishers that count their deliveries.
type StatsSource interface {
	Stats() events.Stats
}

type HandlerOptions struct {
	SecretKey     string
	CookieSecure  bool
	MaxTimerHours int
	Location      *time.Location
}

type Handler struct {
	store        *db.Store
	publisher    services.Publisher
	secretKey    []byte
	location     *time.Location
	cookieSecure bool
	maxTimerHrs  int
	loginLimiter *attemptLimiter

	authService         *services.AuthService
	userService         *services.UserService
	projectService      *services.ProjectService
	membershipService   *services.MembershipService
	cardService         *services.CardService
	assignmentService   *services.AssignmentService
	historyService      *services.HistoryService
	workloadService     *services.WorkloadService
	subtaskService      *services.SubtaskService
	timerService        *services.TimerService
	notificationService *services.NotificationService
	consistencyService  *services.ConsistencyService
}

func NewHandler(store *db.Store, publisher services.Publisher, options HandlerOptions) (*Handler, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if strings.TrimSpace(options.SecretKey) == "" {
		return nil, errors.New("secret key is required")
	}
	if options.Location == nil {
		options.Location = time.UTC
	}

	handler := &Handler{
		store:        store,
		publisher:    publisher,
		secretKey:    []byte(options.SecretKey),
		location:     options.Location,
		cookieSecure: options.CookieSecure,
		maxTimerHrs:  options.MaxTimerHours,
		loginLimiter: newAttemptLimiter(),
	}
	return handler.withDependencies(), nil
}
