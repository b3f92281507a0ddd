package solana

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a GetTransactionResult from a Transaction.
// TransactionResultEnvelope has unexported fields, so we round-trip via JSON.
func makeTransactionResult(t *testing.T, tx *solana.Transaction) *rpc.GetTransactionResult {
	t.Helper()

	txJSON, err := json.Marshal(tx)
	require.NoError(t, err)

	var temp struct {
		Transaction json.RawMessage `json:"transaction"`
	}
	temp.Transaction = txJSON

	envelopeJSON, err := json.Marshal(temp)
	require.NoError(t, err)

	var result rpc.GetTransactionResult
	require.NoError(t, json.Unmarshal(envelopeJSON, &result))
	return &result
}

func systemTransferData(lamports uint64) []byte {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], SystemProgramTransferInstruction)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return data
}

func tokenTransferCheckedData(amount uint64, decimals uint8) []byte {
	data := make([]byte, 10)
	data[0] = TokenProgramTransferCheckedInstruction
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals
	return data
}

func TestExtractTransfers_SOLTransfer(t *testing.T) {
	fromAddr := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	toAddr := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{fromAddr, toAddr, SystemProgramID},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIDIndex: 2,              // SystemProgramID
					Accounts:       []uint16{0, 1}, // from, to
					Data:           systemTransferData(1000000000),
				},
			},
		},
	}

	transfers := ExtractTransfers(tx)

	require.Len(t, transfers, 1)
	assert.Equal(t, KindNative, transfers[0].Kind)
	assert.Equal(t, uint64(1000000000), transfers[0].Amount)
	assert.Equal(t, fromAddr, transfers[0].Source)
	assert.Equal(t, toAddr, transfers[0].Destination)
	assert.Nil(t, transfers[0].Mint)
	assert.Nil(t, transfers[0].Authority)
}

func TestExtractTransfers_TokenTransferChecked(t *testing.T) {
	sourceTokenAccount := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	mintAddr := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v") // USDC mainnet
	destTokenAccount := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	authority := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{sourceTokenAccount, mintAddr, destTokenAccount, authority, TokenProgramID},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIDIndex: 4,                    // TokenProgramID
					Accounts:       []uint16{0, 1, 2, 3}, // source, mint, dest, authority
					Data:           tokenTransferCheckedData(1000000, 6),
				},
			},
		},
	}

	transfers := ExtractTransfers(tx)

	require.Len(t, transfers, 1)
	assert.Equal(t, KindToken, transfers[0].Kind)
	assert.Equal(t, uint64(1000000), transfers[0].Amount)
	assert.Equal(t, sourceTokenAccount, transfers[0].Source)
	assert.Equal(t, destTokenAccount, transfers[0].Destination)
	require.NotNil(t, transfers[0].Mint)
	assert.Equal(t, mintAddr, *transfers[0].Mint)
	require.NotNil(t, transfers[0].Authority)
	assert.Equal(t, authority, *transfers[0].Authority)
}

func TestExtractTransfers_LegacyTokenTransfer(t *testing.T) {
	sourceTokenAccount := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	destTokenAccount := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	authority := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	data := make([]byte, 9)
	data[0] = TokenProgramTransferInstruction
	binary.LittleEndian.PutUint64(data[1:9], 42)

	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{sourceTokenAccount, destTokenAccount, authority, TokenProgramID},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIDIndex: 3,                 // TokenProgramID
					Accounts:       []uint16{0, 1, 2}, // source, dest, authority
					Data:           data,
				},
			},
		},
	}

	transfers := ExtractTransfers(tx)

	require.Len(t, transfers, 1)
	assert.Equal(t, KindToken, transfers[0].Kind)
	assert.Equal(t, uint64(42), transfers[0].Amount)
	assert.Nil(t, transfers[0].Mint) // plain Transfer does not reference the mint
	require.NotNil(t, transfers[0].Authority)
	assert.Equal(t, authority, *transfers[0].Authority)
}

func TestExtractTransfers_MultipleInstructionsPreserveOrder(t *testing.T) {
	a := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	b := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{a, b, SystemProgramID},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIDIndex: 2,
					Accounts:       []uint16{0, 1},
					Data:           systemTransferData(100),
				},
				{
					ProgramIDIndex: 2,
					Accounts:       []uint16{1, 0},
					Data:           systemTransferData(200),
				},
			},
		},
	}

	transfers := ExtractTransfers(tx)

	require.Len(t, transfers, 2)
	assert.Equal(t, uint64(100), transfers[0].Amount)
	assert.Equal(t, uint64(200), transfers[1].Amount)
}

func TestExtractTransfers_SkipsMalformedInstructions(t *testing.T) {
	a := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	b := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{a, b, SystemProgramID},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIDIndex: 2,
					Accounts:       []uint16{0, 1},
					Data:           []byte{1, 2}, // too short to decode
				},
				{
					ProgramIDIndex: 2,
					Accounts:       []uint16{0, 1},
					Data:           systemTransferData(300),
				},
			},
		},
	}

	transfers := ExtractTransfers(tx)

	require.Len(t, transfers, 1)
	assert.Equal(t, uint64(300), transfers[0].Amount)
}

func TestExtractTransfers_NilTransaction(t *testing.T) {
	assert.Nil(t, ExtractTransfers(nil))
}

func TestDecodeTransaction_NilResult(t *testing.T) {
	tx, err := DecodeTransaction(nil)
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestDecodeTransaction_RoundTrip(t *testing.T) {
	fromAddr := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	toAddr := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	original := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{fromAddr, toAddr, SystemProgramID},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIDIndex: 2,
					Accounts:       []uint16{0, 1},
					Data:           systemTransferData(500000000),
				},
			},
		},
	}

	result := makeTransactionResult(t, original)

	decoded, err := DecodeTransaction(result)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	transfers := ExtractTransfers(decoded)
	require.Len(t, transfers, 1)
	assert.Equal(t, uint64(500000000), transfers[0].Amount)
}
