package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"rfpflow/model/model"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

const answerPreamble = "Please keep the answer concise and limit it to between 100 to 200 words. " +
	"Treat the input as a question and provide a summary. " +
	"Do not refer to the document names, banks, or entities directly. " +
	"Provide and construct summary in a way where the user should feel they are retrieving answers in a chat format."

// ServiceError is a non-2xx reply from the answer service, carrying the
// status and body so the failure is inspectable at the row level.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("answer service request failed: %d - %s", e.StatusCode, e.Body)
}

// Client calls the Discovery Engine answer endpoint. A fresh bearer token
// is fetched from the ambient credential chain before every call; tokens
// are not cached across calls. No timeout is set on the HTTP client,
// matching the behavior this replaces.
type Client struct {
	Endpoint    string
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource
}

func New(endpoint string) *Client {
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{},
	}
}

type answerQuery struct {
	Text string `json:"text"`
}

type promptSpec struct {
	Preamble string `json:"preamble"`
}

type modelSpec struct {
	ModelVersion string `json:"modelVersion"`
}

type answerGenerationSpec struct {
	IgnoreAdversarialQuery      bool       `json:"ignoreAdversarialQuery"`
	IgnoreNonAnswerSeekingQuery bool       `json:"ignoreNonAnswerSeekingQuery"`
	IgnoreLowRelevantContent    bool       `json:"ignoreLowRelevantContent"`
	IncludeCitations            bool       `json:"includeCitations"`
	PromptSpec                  promptSpec `json:"promptSpec"`
	ModelSpec                   modelSpec  `json:"modelSpec"`
}

type answerRequest struct {
	Query                answerQuery          `json:"query"`
	Session              string               `json:"session"`
	AnswerGenerationSpec answerGenerationSpec `json:"answerGenerationSpec"`
}

type answerResponse struct {
	Answer struct {
		AnswerText string `json:"answerText"`
	} `json:"answer"`
	Session string `json:"session"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	ts := c.TokenSource
	if ts == nil {
		source, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return "", errors.Wrap(err, "failed to resolve default credentials")
		}
		ts = source
	}
	token, err := ts.Token()
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch access token")
	}
	return token.AccessToken, nil
}

// Ask sends one query, single attempt. Session is empty for a fresh
// conversation; a token returned by the service links follow-up queries
// but is never reused across rows by the caller.
func (c *Client) Ask(ctx context.Context, query, session string) (*model.ServiceAnswer, error) {
	accessToken, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := answerRequest{
		Query:   answerQuery{Text: query},
		Session: session,
		AnswerGenerationSpec: answerGenerationSpec{
			IgnoreAdversarialQuery:      true,
			IgnoreNonAnswerSeekingQuery: true,
			IgnoreLowRelevantContent:    true,
			IncludeCitations:            true,
			PromptSpec:                  promptSpec{Preamble: answerPreamble},
			ModelSpec:                   modelSpec{ModelVersion: "preview"},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Authorization", "Bearer "+accessToken)
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "answer service request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := ioutil.ReadAll(resp.Body)
		return nil, &ServiceError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var decoded answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "failed to decode answer response")
	}
	return &model.ServiceAnswer{Text: decoded.Answer.AnswerText, Session: decoded.Session}, nil
}
