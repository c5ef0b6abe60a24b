package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"quizfunnel/internal/models"
)

// Publisher renders a reconciled quiz into a hosted page on the external
// platform. It runs after the reconciliation transaction commits; failures
// are logged by the caller and never unwind the reconciliation.
type Publisher interface {
	PublishQuiz(ctx context.Context, quiz *models.QuizDefinition) error
}

// HTTPPublisher posts the public quiz view to the platform's page endpoint.
// An empty endpoint disables publishing, which is how local and test
// environments run.
type HTTPPublisher struct {
	endpoint string
	client   *http.Client
}

func NewHTTPPublisher(endpoint string) *HTTPPublisher {
	return &HTTPPublisher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPPublisher) PublishQuiz(ctx context.Context, quiz *models.QuizDefinition) error {
	if p.endpoint == "" {
		log.Printf("Publishing disabled, skipping quiz %d", quiz.ID)
		return nil
	}

	view := quiz.ToView()
	body, err := json.Marshal(view)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("publisher returned status %d for quiz %d", resp.StatusCode, quiz.ID)
	}
	return nil
}
