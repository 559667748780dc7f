package records

import (
	"context"
	"net/http"

	"github.com/latticeworks/substrate/internal/httputil"
	"github.com/latticeworks/substrate/internal/identity"
	"github.com/latticeworks/substrate/internal/layer"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/retry"
)

// Services is the typed bundle of outside-service operations, bound to
// one request's identity and logger.
type Services struct {
	NotifyCreated layer.Op[Notification, struct{}]
}

// NewServices binds every service function for one request.
func NewServices(pol retry.Policy, notifier *httputil.ServiceClient, id identity.Identity, log *logging.Logger) Services {
	return Services{
		NotifyCreated: layer.Service(pol, id, log, "notifier.record_created", notifyCreated(notifier)),
	}
}

// notifyCreated posts a creation event to the notification service. Raw
// failures keep their HTTP or network shape for the retry classifier.
func notifyCreated(notifier *httputil.ServiceClient) layer.ServiceFunc[Notification, struct{}] {
	return func(id identity.Identity, log *logging.Logger) func(context.Context, Notification) (struct{}, error) {
		return func(ctx context.Context, note Notification) (struct{}, error) {
			_, err := notifier.Do(ctx, http.MethodPost, "/v1/events", note)
			return struct{}{}, err
		}
	}
}
