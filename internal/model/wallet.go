package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeWallet returns the EIP-55 checksum form of a wallet address.
func NormalizeWallet(input string) (string, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return "", fmt.Errorf("invalid wallet address: %s", input)
	}
	return common.HexToAddress(input).Hex(), nil
}

// ParseWallets normalizes a list of wallet addresses, skipping blanks.
func ParseWallets(inputs []string) ([]string, error) {
	wallets := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		wallet, err := NormalizeWallet(input)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}
