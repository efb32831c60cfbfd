package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

var (
	chainID uint16
	nonce   int64
	to      string
	value   uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().Uint16VarP(&chainID, "chain", "c", 1, "Chain id the transaction is bound to.")
	sendCmd.Flags().Int64VarP(&nonce, "nonce", "n", -1, "Nonce for the transaction. The node is asked when not set.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
}

func sendRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return err
	}

	fromID := database.PublicKeyToAccountID(privateKey.PublicKey)

	toID, err := database.ToAccountID(to)
	if err != nil {
		return err
	}

	// The next expected nonce is what the node holds for the account.
	txNonce := uint64(nonce)
	if nonce < 0 {
		account, err := queryAccount(fromID)
		if err != nil {
			return err
		}
		txNonce = account.Nonce
	}

	tx, err := database.NewTx(chainID, txNonce, fromID, toID, value)
	if err != nil {
		return err
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		return err
	}

	data, err := json.Marshal(signedTx)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node responded with %s: %s", resp.Status, body)
	}

	fmt.Println(string(body))
	return nil
}
