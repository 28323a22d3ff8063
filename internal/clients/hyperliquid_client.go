package clients

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// HyperliquidClient wraps the SDK exchange. Only the public Info API is used for
// market data, so a throwaway key is generated when none is configured.
type HyperliquidClient struct {
	exchange    *hyperliquid.Exchange
	accountAddr string
	readOnly    bool
}

// NewHyperliquidClient builds a client for baseURL (empty means mainnet).
func NewHyperliquidClient(privateKeyHex string, baseURL string) (*HyperliquidClient, error) {
	privateKey, readOnly, err := loadOrGenerateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	pubECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("error casting public key to ECDSA")
	}
	accountAddr := crypto.PubkeyToAddress(*pubECDSA).Hex()

	ex, err := newExchange(privateKey, baseURL, accountAddr)
	if err != nil {
		return nil, err
	}

	return &HyperliquidClient{exchange: ex, accountAddr: accountAddr, readOnly: readOnly}, nil
}

// newExchange fetches exchange metadata through the SDK, which panics when that request
// fails. The panic is turned into an error.
func newExchange(privateKey *ecdsa.PrivateKey, baseURL, accountAddr string) (ex *hyperliquid.Exchange, err error) {
	defer func() {
		if r := recover(); r != nil {
			ex = nil
			err = errors.Errorf("hyperliquid metadata unavailable: %v", r)
		}
	}()

	ex = hyperliquid.NewExchange(
		context.Background(),
		privateKey,
		baseURL,
		nil,
		"",
		accountAddr,
		nil,
	)
	if ex == nil {
		return nil, errors.New("hyperliquid exchange is nil")
	}
	return ex, nil
}

func loadOrGenerateKey(hexKey string) (*ecdsa.PrivateKey, bool, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, false, errors.Wrap(err, "generate ephemeral hyperliquid key")
		}
		return key, true, nil
	}

	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, false, errors.Wrap(err, "invalid hyperliquid private key")
	}
	return key, false, nil
}

func (c *HyperliquidClient) Info() *hyperliquid.Info  { return c.exchange.Info() }
func (c *HyperliquidClient) AccountAddress() string { return c.accountAddr }

// ReadOnly reports whether the client runs on a generated key.
func (c *HyperliquidClient) ReadOnly() bool { return c.readOnly }
