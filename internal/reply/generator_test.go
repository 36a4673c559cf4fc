package reply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyship/reviewreply/internal/llm"
	"github.com/tinyship/reviewreply/internal/models"
	"github.com/tinyship/reviewreply/internal/settings"
	"github.com/tinyship/reviewreply/internal/store"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type mockStore struct {
	comments map[int64]*models.Comment
	products map[int64]*models.Product
	options  map[string]string

	getCommentErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		comments: map[int64]*models.Comment{},
		products: map[int64]*models.Product{},
		options:  map[string]string{},
	}
}

func (m *mockStore) GetComment(_ context.Context, id int64) (*models.Comment, error) {
	if m.getCommentErr != nil {
		return nil, m.getCommentErr
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", id, store.ErrNotFound)
	}
	return c, nil
}

func (m *mockStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	return p, nil
}

func (m *mockStore) GetOption(_ context.Context, name string) (string, error) {
	v, ok := m.options[name]
	if !ok {
		return "", fmt.Errorf("option %q: %w", name, store.ErrNotFound)
	}
	return v, nil
}

func (m *mockStore) SetOption(_ context.Context, name, value string) error {
	m.options[name] = value
	return nil
}

// fakeProvider records calls and returns a canned result.
type fakeProvider struct {
	text  string
	err   error
	calls int

	system, user, model string
	temperature         float64
}

func (f *fakeProvider) Complete(_ context.Context, system, user, model string, temperature float64) (string, error) {
	f.calls++
	f.system, f.user, f.model, f.temperature = system, user, model, temperature
	return f.text, f.err
}

func staticProvider(p llm.CompletionProvider) ProviderFunc {
	return func(context.Context, string) (llm.CompletionProvider, error) { return p, nil }
}

// seed stores a product, a five-star review by Jane, a plain comment, and
// settings with an API key.
func seed(t *testing.T, m *mockStore) {
	t.Helper()
	m.products[1] = &models.Product{ID: 1, Title: "Ceramic Mug"}
	m.comments[10] = &models.Comment{ID: 10, ProductID: 1, Author: "Jane", Content: "Lovely mug!", Type: models.CommentTypeReview, Rating: intPtr(5)}
	m.comments[11] = &models.Comment{ID: 11, ProductID: 1, Author: "Shop", Content: "Thanks", Type: models.CommentTypeComment}
	_, err := settings.Save(context.Background(), m, map[string]string{"api_key": "sk-test", "model": "gpt-4o-mini", "tone": "professional"})
	require.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGenerate_Success(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	fp := &fakeProvider{text: "  <p>Thanks Jane!</p>  "}
	g := NewGenerator(m, staticProvider(fp), nil)

	got, err := g.Generate(context.Background(), 10, "casual")
	require.NoError(t, err)
	assert.Equal(t, "Thanks Jane!", got)

	assert.Equal(t, 1, fp.calls)
	assert.Equal(t, "gpt-4o-mini", fp.model)
	assert.Equal(t, Temperature, fp.temperature)
	assert.Equal(t, systemPrompt, fp.system)
	assert.Contains(t, fp.user, "Write a casual public reply")
	assert.Contains(t, fp.user, "Product: Ceramic Mug")
	assert.Contains(t, fp.user, "Rating: 5/5")
	assert.Contains(t, fp.user, "Reviewer: Jane")
}

func TestGenerate_ToneHandling(t *testing.T) {
	tests := []struct {
		name string
		tone string
		want string
	}{
		{"empty uses stored tone", "", "Write a professional"},
		{"allowed tone is used", "friendly", "Write a friendly"},
		{"unknown tone is coerced", "furious", "Write a friendly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockStore()
			seed(t, m)
			fp := &fakeProvider{text: "ok"}
			g := NewGenerator(m, staticProvider(fp), nil)

			_, err := g.Generate(context.Background(), 10, tt.tone)
			require.NoError(t, err)
			assert.Contains(t, fp.user, tt.want)
		})
	}
}

func TestGenerate_StoredToneOutsideAllowList(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	m.options[settings.OptionName] = `{"api_key":"sk-test","model":"gpt-4o-mini","tone":"apologetic"}`
	fp := &fakeProvider{text: "ok"}
	g := NewGenerator(m, staticProvider(fp), nil)

	_, err := g.Generate(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Contains(t, fp.user, "Write a friendly")
	assert.NotContains(t, fp.user, "apologetic")
}

func TestGenerate_ProductFallback(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	delete(m.products, 1)
	fp := &fakeProvider{text: "ok"}
	g := NewGenerator(m, staticProvider(fp), nil)

	_, err := g.Generate(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Contains(t, fp.user, "Product: the product")
}

func TestGenerate_EmptyModelUsesDefault(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	_, err := settings.Save(context.Background(), m, map[string]string{"api_key": "sk-test", "model": ""})
	require.NoError(t, err)
	fp := &fakeProvider{text: "ok"}
	g := NewGenerator(m, staticProvider(fp), nil)

	_, err = g.Generate(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultModel, fp.model)
}

func TestGenerate_NotFound(t *testing.T) {
	for _, id := range []int64{0, 11, 999} {
		t.Run(fmt.Sprint(id), func(t *testing.T) {
			m := newMockStore()
			seed(t, m)
			fp := &fakeProvider{text: "ok"}
			built := 0
			g := NewGenerator(m, func(context.Context, string) (llm.CompletionProvider, error) {
				built++
				return fp, nil
			}, nil)

			_, err := g.Generate(context.Background(), id, "friendly")
			require.Error(t, err)
			assert.Equal(t, KindNotFound, KindOf(err))
			assert.Equal(t, "Review not found", err.Error())
			assert.Zero(t, fp.calls, "no outbound call for a non-review")
			assert.Zero(t, built)
		})
	}
}

func TestGenerate_MissingConfiguration(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	_, err := settings.Save(context.Background(), m, map[string]string{"api_key": "  ", "model": "gpt-4o-mini"})
	require.NoError(t, err)
	fp := &fakeProvider{text: "ok"}
	g := NewGenerator(m, staticProvider(fp), nil)

	_, err = g.Generate(context.Background(), 10, "friendly")
	require.Error(t, err)
	assert.Equal(t, KindMissingConfiguration, KindOf(err))
	assert.Zero(t, fp.calls)

	var genErr *Error
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, http.StatusBadRequest, genErr.HTTPStatus())
}

func TestGenerate_MissingConfiguration_NeverSaved(t *testing.T) {
	m := newMockStore()
	m.products[1] = &models.Product{ID: 1, Title: "Mug"}
	m.comments[10] = &models.Comment{ID: 10, ProductID: 1, Type: models.CommentTypeReview}
	fp := &fakeProvider{text: "ok"}
	g := NewGenerator(m, staticProvider(fp), nil)

	_, err := g.Generate(context.Background(), 10, "")
	assert.Equal(t, KindMissingConfiguration, KindOf(err))
	assert.Zero(t, fp.calls)
}

func TestGenerate_StoreFailure(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	m.getCommentErr = errors.New("database is locked")
	g := NewGenerator(m, staticProvider(&fakeProvider{}), nil)

	_, err := g.Generate(context.Background(), 10, "")
	require.Error(t, err)
	assert.Equal(t, Kind(""), KindOf(err))
	assert.Contains(t, err.Error(), "database is locked")
}

func TestGenerate_ProviderFactoryFailure(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	g := NewGenerator(m, func(context.Context, string) (llm.CompletionProvider, error) {
		return nil, errors.New("unknown completion provider \"x\"")
	}, nil)

	_, err := g.Generate(context.Background(), 10, "")
	require.Error(t, err)
	assert.Equal(t, Kind(""), KindOf(err))
}

func TestGenerate_TransportError(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	fp := &fakeProvider{err: errors.New("dial tcp: lookup api.example: no such host")}
	g := NewGenerator(m, staticProvider(fp), nil)

	_, err := g.Generate(context.Background(), 10, "")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, "dial tcp: lookup api.example: no such host", err.Error())
}

func TestGenerate_EmptyReply(t *testing.T) {
	for _, text := range []string{"", "   ", "<p> </p>"} {
		m := newMockStore()
		seed(t, m)
		g := NewGenerator(m, staticProvider(&fakeProvider{text: text}), nil)

		_, err := g.Generate(context.Background(), 10, "")
		require.Error(t, err)
		assert.Equal(t, KindUpstream, KindOf(err))
	}
}

// openAIStub serves a canned chat completion response and counts requests.
func openAIStub(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func openAIProvider(baseURL string) ProviderFunc {
	return func(_ context.Context, apiKey string) (llm.CompletionProvider, error) {
		return llm.NewOpenAIProvider(apiKey, llm.Options{BaseURL: baseURL}), nil
	}
}

func TestGenerate_OpenAI_TrimmedReply(t *testing.T) {
	srv, hits := openAIStub(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  Thanks Jane!  "}}]}`)
	m := newMockStore()
	seed(t, m)
	g := NewGenerator(m, openAIProvider(srv.URL), nil)

	got, err := g.Generate(context.Background(), 10, "friendly")
	require.NoError(t, err)
	assert.Equal(t, "Thanks Jane!", got)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGenerate_OpenAI_Upstream500(t *testing.T) {
	srv, hits := openAIStub(t, http.StatusInternalServerError, `{"error":{"message":"The server had an error"}}`)
	m := newMockStore()
	seed(t, m)
	g := NewGenerator(m, openAIProvider(srv.URL), nil)

	_, err := g.Generate(context.Background(), 10, "friendly")
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Equal(t, "completion request failed with status 500: The server had an error", err.Error())
	assert.Equal(t, int32(1), hits.Load(), "no retries")

	var statusErr *llm.StatusError
	assert.True(t, errors.As(err, &statusErr), "underlying provider error is kept")
}

func TestGenerate_OpenAI_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	m := newMockStore()
	seed(t, m)
	g := NewGenerator(m, openAIProvider(url), nil)

	_, err := g.Generate(context.Background(), 10, "")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "connect")
}

func TestError_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, PermissionDenied("nope").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, newError(KindNotFound, "", nil).HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, newError(KindMissingConfiguration, "", nil).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, newError(KindTransport, "", nil).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, newError(KindUpstream, "", nil).HTTPStatus())
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", newError(KindUpstream, "boom", nil))
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

// blockingProvider waits for the call's context to end.
type blockingProvider struct{}

func (blockingProvider) Complete(ctx context.Context, _, _, _ string, _ float64) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerate_Timeout(t *testing.T) {
	m := newMockStore()
	seed(t, m)
	g := NewGenerator(m, staticProvider(blockingProvider{}), nil).WithTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := g.Generate(context.Background(), 10, "")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
