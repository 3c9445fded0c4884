package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/metrics"

	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 16

	successBody    = "Success"
	badRequestBody = "Bad request!"
)

// Options tunes the leaderboard endpoints
type Options struct {
	// Limit is the number of entries returned by GET
	Limit int64

	// StrictValidation turns silently dropped submissions into 422 responses
	StrictValidation bool

	// RequestTimeout bounds each store call; zero means no extra deadline
	RequestTimeout time.Duration
}

// DefaultOptions returns the lenient defaults: top 10, silent rejection, 5s store timeout
func DefaultOptions() Options {
	return Options{
		Limit:          leaderboard.DefaultLimit,
		RequestTimeout: 5 * time.Second,
	}
}

// Service serves the leaderboard HTTP endpoints on top of a Store
type Service struct {
	logger *logger.Logger
	store  leaderboard.Store
	opts   Options
}

// NewService creates a new API service instance
func NewService(l *logger.Logger, store leaderboard.Store, opts Options) *Service {
	if opts.Limit <= 0 || opts.Limit > leaderboard.DefaultLimit {
		opts.Limit = leaderboard.DefaultLimit
	}
	return &Service{
		logger: l,
		store:  store,
		opts:   opts,
	}
}

// Router returns the routes of the API
func (s *Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(leaderboard.APIPath, s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc(leaderboard.APIPath, s.handleList).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

// Start serves the API on addr until ctx is canceled, then shuts down gracefully
func (s *Service) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting leaderboard api", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("stopping leaderboard api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// submission is the POST body. Fields stay raw because "score" may be a
// string or a number and "name" is type-checked by hand.
type submission struct {
	Name  json.RawMessage `json:"name"`
	Score json.RawMessage `json:"score"`
}

type errorBody struct {
	Message string `json:"message"`
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, http.StatusBadRequest, badRequestBody, metrics.OutcomeInvalid, err)
		return
	}

	var sub submission
	if err := json.Unmarshal(body, &sub); err != nil {
		s.fail(w, http.StatusBadRequest, badRequestBody, metrics.OutcomeInvalid, err)
		return
	}

	name, isString, err := decodeName(sub.Name)
	if err != nil {
		s.fail(w, http.StatusBadRequest, badRequestBody, metrics.OutcomeInvalid, err)
		return
	}
	score := leaderboard.ParseScore(sub.Score)

	if !isString || !leaderboard.ValidName(name) {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		s.logger.Info("submission rejected: name length out of bounds",
			zap.String("name", name),
			zap.Bool("strict", s.opts.StrictValidation))
		if s.opts.StrictValidation {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: "name must be between 3 and 24 characters"})
			return
		}
		writeSuccess(w)
		return
	}

	if score.IsNaN() {
		if s.opts.StrictValidation {
			metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			s.logger.Info("submission rejected: score is not an integer", zap.ByteString("score", sub.Score))
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: "score must be an integer"})
			return
		}
		metrics.NaNScoresTotal.Inc()
		s.logger.Warn("storing submission with NaN score", zap.String("name", name), zap.ByteString("score", sub.Score))
	}

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	entry := &leaderboard.Entry{Name: name, Score: score}
	if err := s.store.Insert(ctx, entry); err != nil {
		s.fail(w, http.StatusBadRequest, badRequestBody, metrics.OutcomeFailed, err)
		return
	}

	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	s.logger.Debug("entry stored", zap.String("id", entry.ID.Hex()), zap.String("score", score.String()))
	writeSuccess(w)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	start := time.Now()
	entries, err := s.store.Top(ctx, s.opts.Limit)
	metrics.RetrievalLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RetrievalErrorsTotal.Inc()
		s.logger.Error("failed to load leaderboard", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Internal Error"})
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Service) fail(w http.ResponseWriter, status int, msg, outcome string, err error) {
	metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	s.logger.Warn("submission failed", zap.String("outcome", outcome), zap.Error(err))
	writeJSON(w, status, errorBody{Message: msg})
}

func (s *Service) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// decodeName returns the submitted name and whether it was a JSON string.
// A missing or null name is an error; any other non-string is reported as
// not a string so it is rejected like an out-of-bounds name.
func decodeName(raw json.RawMessage) (string, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, errors.New("missing name")
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", false, nil
	}
	return name, true, nil
}

func writeSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(successBody))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
