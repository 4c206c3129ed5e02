package swap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTestNotFound = NewError(KindNotFound, "TestNotFound", "test not found")

// TestErrorClassification asserts that wrapped sentinels keep their kind and
// identity while foreign errors are classified as internal.
func TestErrorClassification(t *testing.T) {
	wrapped := Errorf(errTestNotFound, "id %v", "abc")
	require.ErrorIs(t, wrapped, errTestNotFound)
	require.Equal(t, KindNotFound, KindOf(wrapped))
	require.Equal(t, "TestNotFound", CodeOf(wrapped))
	require.Equal(t, "test not found: id abc", wrapped.Error())

	doubleWrapped := fmt.Errorf("outer: %w", wrapped)
	require.Equal(t, KindNotFound, KindOf(doubleWrapped))

	foreign := errors.New("disk on fire")
	require.Equal(t, KindInternal, KindOf(foreign))
	require.Equal(t, "Internal", CodeOf(foreign))

	boundary := Wrap(foreign)
	require.Equal(t, KindInternal, boundary.Kind)
	require.ErrorIs(t, boundary, foreign)
	require.Equal(t, "disk on fire", boundary.Error())

	boundary = Wrap(doubleWrapped)
	require.Equal(t, KindNotFound, boundary.Kind)
	require.ErrorIs(t, boundary, errTestNotFound)

	require.Same(t, errTestNotFound, Wrap(errTestNotFound))
	require.Nil(t, Wrap(nil))
}

// TestParseChainType tests parsing of chain names.
func TestParseChainType(t *testing.T) {
	for _, chain := range AllChains {
		parsed, err := ParseChainType(chain.String())
		require.NoError(t, err)
		require.Equal(t, chain, parsed)
	}

	_, err := ParseChainType("dogecoin")
	require.Equal(t, KindInvalidInput, KindOf(err))
	require.False(t, ChainUnknown.Valid())

	maker, taker := CounterChain(true)
	require.Equal(t, ChainEVM, maker)
	require.Equal(t, ChainNative, taker)
}
