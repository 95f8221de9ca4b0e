package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bnema/oneiro/internal/adapters/secrets/pass"
	"github.com/bnema/oneiro/internal/domain"
	portmocks "github.com/bnema/oneiro/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const apiKeyRef = "openai/api_key"

func newChain(t *testing.T) (*Store, *portmocks.MockSecretStore, *portmocks.MockSecretStore) {
	t.Helper()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)
	return store, primary, fallback
}

func TestNewStoreRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, portmocks.NewMockSecretStore(t))
	require.ErrorIs(t, err, errNilPrimaryStore)

	_, err = NewStore(portmocks.NewMockSecretStore(t), nil)
	require.ErrorIs(t, err, errNilFallbackStore)
}

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Get(mock.Anything, apiKeyRef).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), apiKeyRef)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetFallsBackWhenPassIsMissing(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Get(mock.Anything, apiKeyRef).Return("", pass.ErrUnavailable).Once()
	fallback.EXPECT().Get(mock.Anything, apiKeyRef).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), apiKeyRef)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReportsNotFoundFromBothBackends(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Get(mock.Anything, apiKeyRef).Return("", fmt.Errorf("pass entry: %w", domain.ErrSecretNotFound)).Once()
	fallback.EXPECT().Get(mock.Anything, apiKeyRef).Return("", fmt.Errorf("secret file: %w", domain.ErrSecretNotFound)).Once()

	_, err := store.Get(context.Background(), apiKeyRef)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "primary backend get failed")
	assert.ErrorContains(t, err, "fallback backend get failed")
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Get(mock.Anything, apiKeyRef).Return("", errors.New("gpg failed")).Once()
	fallback.EXPECT().Get(mock.Anything, apiKeyRef).Return("", errors.New("permission denied")).Once()

	_, err := store.Get(context.Background(), apiKeyRef)
	require.Error(t, err)
	assert.ErrorContains(t, err, "gpg failed")
	assert.ErrorContains(t, err, "permission denied")
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Put(mock.Anything, apiKeyRef, "sk-test").Return(pass.ErrUnavailable).Once()
	fallback.EXPECT().Put(mock.Anything, apiKeyRef, "sk-test").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), apiKeyRef, "sk-test"))
}

func TestStorePutDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Put(mock.Anything, apiKeyRef, "sk-test").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), apiKeyRef, "sk-test"))
}

func TestStoreDeleteFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Delete(mock.Anything, apiKeyRef).Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Delete(mock.Anything, apiKeyRef).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), apiKeyRef))
}

func TestStoreSkipsFallbackOnCancellation(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Get(mock.Anything, apiKeyRef).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), apiKeyRef)
	require.ErrorIs(t, err, context.Canceled)
}
