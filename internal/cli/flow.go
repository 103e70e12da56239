package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/miniapp-session/internal/api/request"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/platform"
	"github.com/mcoot/miniapp-session/internal/poller"
	"github.com/mcoot/miniapp-session/internal/transport"
)

// flowFlags are shared by the deep-link commands
type flowFlags struct {
	noOpen   bool
	simulate int64
}

func (f *flowFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noOpen, "no-open", false, "Print the deep link instead of opening it")
	cmd.Flags().Int64Var(&f.simulate, "simulate-bot", 0, "Confirm the handshake as this Telegram id via the dev endpoint")
}

// opener prints the deep link and then opens it, skips it or confirms it as
// the simulated bot
func (f *flowFlags) opener(cmd *cobra.Command) poller.Opener {
	errOut := cmd.ErrOrStderr()
	return poller.OpenerFunc(func(target string) error {
		_, _ = fmt.Fprintf(errOut, "Open in Telegram: %s\n", target)
		switch {
		case f.simulate != 0:
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
			defer cancel()
			token, err := tokenFromTarget(target)
			if err != nil {
				return err
			}
			_, err = confirmHandshake(ctx, app.Transport, token, simulatedProfile(f.simulate))
			return err
		case f.noOpen:
			return nil
		default:
			return poller.BrowserOpener{}.Open(target)
		}
	})
}

// flowRun is how a deep-link flow ended for the command
type flowRun struct {
	snapshot poller.Snapshot
	// cause is why the flow failed to start, if it did
	cause error
}

// runFlow starts p and blocks until it finishes or the command is interrupted.
// A failed start is reported through the returned run, not as an error.
func runFlow(cmd *cobra.Command, p *poller.Poller) (flowRun, error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return flowRun{snapshot: p.Snapshot(), cause: err}, nil
	}
	snapshot, err := p.Wait(ctx)
	if err != nil {
		p.Stop()
		return flowRun{snapshot: snapshot}, err
	}
	return flowRun{snapshot: snapshot}, nil
}

func flowResult(purpose model.FlowPurpose, snapshot poller.Snapshot, user *model.User) FlowResult {
	return FlowResult{
		Purpose:  string(purpose),
		State:    string(snapshot.State),
		Message:  snapshot.Message,
		Attempts: snapshot.Attempts,
		User:     userResult(user),
	}
}

// flowError turns a non-successful terminal snapshot into the command error,
// keeping cause when the flow failed to start
func flowError(snapshot poller.Snapshot, cause error) error {
	if snapshot.State == poller.StateSuccess {
		return nil
	}
	message := snapshot.Message
	if message == "" {
		message = fmt.Sprintf("flow ended in state %s", snapshot.State)
	}
	if cause != nil {
		return fmt.Errorf("%s: %w", message, cause)
	}
	return errors.New(message)
}

// tokenFromTarget extracts the handshake token from a bot start link
// ("https://t.me/<bot>?start=<purpose>_<token>")
func tokenFromTarget(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid deep link: %w", err)
	}
	_, token, ok := strings.Cut(u.Query().Get("start"), "_")
	if !ok || token == "" {
		return "", fmt.Errorf("deep link %q carries no handshake token", target)
	}
	return token, nil
}

// simulatedProfile uses the mock identity with id when there is one
func simulatedProfile(id int64) model.TelegramProfile {
	for _, identity := range platform.DefaultMockIdentities() {
		if identity.ID == id {
			return identity
		}
	}
	return model.TelegramProfile{ID: id, FirstName: fmt.Sprintf("User %d", id)}
}

func confirmHandshake(ctx context.Context, client *transport.Client, token string, profile model.TelegramProfile) (ConfirmResult, error) {
	var result ConfirmResult
	path := "/dev/handshakes/" + url.PathEscape(token) + "/confirm"
	err := client.Post(ctx, path, request.ConfirmRequest{
		TelegramID: profile.ID,
		Username:   profile.Username,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		PhotoURL:   profile.PhotoURL,
	}, &result)
	if err != nil {
		return ConfirmResult{}, err
	}
	result.Token = token
	return result, nil
}
