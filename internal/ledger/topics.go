package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	hProtocol "github.com/stellar/go-stellar-sdk/protocols/horizon"
	"github.com/stellar/go-stellar-sdk/txnbuild"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
)

const (
	// topicMessageAmount is one stroop, the smallest native payment.
	topicMessageAmount = "0.0000001"
	horizonMaxPageSize = 200
	memoTypeHash       = "hash"
)

// SubmitTopicMessage anchors sha256(payload) on the topic account and returns the transaction hash as the message id.
func (c *stellarClient) SubmitTopicMessage(ctx context.Context, topicID string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("submitting topic message: empty payload")
	}

	hash, err := c.submit(ctx, txRequest{
		label:  "topic_message",
		source: c.operatorAccountID,
		operations: []txnbuild.Operation{&txnbuild.Payment{
			Destination: topicID,
			Amount:      topicMessageAmount,
			Asset:       txnbuild.NativeAsset{},
		}},
		memo:    txnbuild.MemoHash(sha256.Sum256(payload)),
		signers: []txSigner{c.operatorTxSigner()},
	})
	if err != nil {
		return "", fmt.Errorf("submitting message to topic %s: %w", topicID, err)
	}
	return hash, nil
}

// QueryTopicMessages returns up to limit of the newest messages on a topic, newest first. Only successful
// operator transactions carrying a hash memo count as messages.
func (c *stellarClient) QueryTopicMessages(ctx context.Context, topicID string, limit int) ([]entities.TopicMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	page, err := readWithRetry(ctx, c, func(context.Context) (hProtocol.TransactionsPage, error) {
		return c.horizon.Transactions(horizonclient.TransactionRequest{
			ForAccount: topicID,
			Order:      horizonclient.OrderDesc,
			Limit:      uint(min(limit, horizonMaxPageSize)),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("querying topic %s: %w", topicID, err)
	}

	messages := make([]entities.TopicMessage, 0, min(limit, horizonMaxPageSize))
	for {
		records := page.Embedded.Records
		for _, tx := range records {
			if message, ok := c.topicMessage(tx); ok {
				messages = append(messages, message)
				if len(messages) >= limit {
					return messages, nil
				}
			}
		}

		if len(records) == 0 || ctx.Err() != nil {
			return messages, nil
		}

		current := page
		page, err = readWithRetry(ctx, c, func(context.Context) (hProtocol.TransactionsPage, error) {
			return c.horizon.NextTransactionsPage(current)
		})
		if err != nil {
			return nil, fmt.Errorf("querying next page of topic %s: %w", topicID, err)
		}
	}
}

func (c *stellarClient) topicMessage(tx hProtocol.Transaction) (entities.TopicMessage, bool) {
	if !tx.Successful || tx.MemoType != memoTypeHash || tx.Account != c.operatorAccountID {
		return entities.TopicMessage{}, false
	}
	memo, err := base64.StdEncoding.DecodeString(tx.Memo)
	if err != nil || len(memo) != sha256.Size {
		return entities.TopicMessage{}, false
	}
	return entities.TopicMessage{
		MessageID:          tx.Hash,
		ContentHash:        hex.EncodeToString(memo),
		ConsensusTimestamp: tx.LedgerCloseTime,
	}, true
}

// ContentHash is the hex content hash a topic message carries for payload.
func ContentHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
