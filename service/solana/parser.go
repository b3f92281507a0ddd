package solana

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Well-known Solana program IDs
var (
	// SystemProgramID is the native SOL transfer program
	SystemProgramID = solana.SystemProgramID

	// TokenProgramID is the SPL Token program
	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// Token2022ProgramID is the Token Extensions program (Token-2022)
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// System Program instruction types
const (
	SystemProgramTransferInstruction = uint32(2)
)

// Token Program instruction types
const (
	TokenProgramTransferInstruction        = uint8(3)
	TokenProgramTransferCheckedInstruction = uint8(12)
)

// DecodeTransaction unwraps the transaction from a GetTransaction RPC result.
// Returns nil (no error) when the result carries no transaction.
func DecodeTransaction(result *rpc.GetTransactionResult) (*solana.Transaction, error) {
	if result == nil || result.Transaction == nil {
		return nil, nil
	}
	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// ExtractTransfers scans a transaction's instructions and returns every
// recognized native or SPL token transfer, in instruction order. Instructions
// that are not transfers (or are malformed) are skipped.
func ExtractTransfers(tx *solana.Transaction) []Transfer {
	if tx == nil {
		return nil
	}

	var transfers []Transfer
	accountKeys := tx.Message.AccountKeys
	for _, instruction := range tx.Message.Instructions {
		if int(instruction.ProgramIDIndex) >= len(accountKeys) {
			continue
		}
		programID := accountKeys[instruction.ProgramIDIndex]

		if programID.Equals(SystemProgramID) {
			if t, err := decodeSystemTransfer(instruction, accountKeys); err == nil {
				transfers = append(transfers, *t)
			}
		}

		if programID.Equals(TokenProgramID) || programID.Equals(Token2022ProgramID) {
			if t, err := decodeTokenTransfer(instruction, accountKeys); err == nil {
				transfers = append(transfers, *t)
			}
		}
	}

	return transfers
}

// decodeSystemTransfer decodes a System Program Transfer instruction.
func decodeSystemTransfer(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) (*Transfer, error) {
	// System Transfer instruction format:
	// [0..4]  = instruction type (u32, should be 2 for Transfer)
	// [4..12] = lamports (u64)
	if len(instruction.Data) < 12 {
		return nil, fmt.Errorf("instruction data too short: %d bytes", len(instruction.Data))
	}

	instructionType := binary.LittleEndian.Uint32(instruction.Data[0:4])
	if instructionType != SystemProgramTransferInstruction {
		return nil, fmt.Errorf("not a transfer instruction: type %d", instructionType)
	}

	amount := binary.LittleEndian.Uint64(instruction.Data[4:12])

	// Account layout for Transfer: [from, to]
	if len(instruction.Accounts) < 2 {
		return nil, fmt.Errorf("transfer instruction missing accounts")
	}
	source, err := accountAt(instruction, accountKeys, 0)
	if err != nil {
		return nil, err
	}
	destination, err := accountAt(instruction, accountKeys, 1)
	if err != nil {
		return nil, err
	}

	return &Transfer{
		Kind:        KindNative,
		Amount:      amount,
		Source:      source,
		Destination: destination,
	}, nil
}

// decodeTokenTransfer decodes an SPL Token Transfer or TransferChecked instruction.
func decodeTokenTransfer(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) (*Transfer, error) {
	if len(instruction.Data) == 0 {
		return nil, fmt.Errorf("empty instruction data")
	}

	switch instruction.Data[0] {
	case TokenProgramTransferInstruction:
		// Transfer instruction format:
		// [0]     = instruction type (u8, 3 = Transfer)
		// [1..9]  = amount (u64)
		if len(instruction.Data) < 9 {
			return nil, fmt.Errorf("transfer instruction data too short")
		}
		amount := binary.LittleEndian.Uint64(instruction.Data[1:9])

		// Account layout for Transfer: [source, destination, authority].
		// Source and destination are token accounts, not wallet owners.
		if len(instruction.Accounts) < 3 {
			return nil, fmt.Errorf("transfer instruction missing accounts")
		}
		source, err := accountAt(instruction, accountKeys, 0)
		if err != nil {
			return nil, err
		}
		destination, err := accountAt(instruction, accountKeys, 1)
		if err != nil {
			return nil, err
		}
		authority, err := accountAt(instruction, accountKeys, 2)
		if err != nil {
			return nil, err
		}

		return &Transfer{
			Kind:        KindToken,
			Amount:      amount,
			Source:      source,
			Destination: destination,
			Authority:   &authority,
			// Mint is not part of the plain Transfer account layout.
		}, nil

	case TokenProgramTransferCheckedInstruction:
		// TransferChecked instruction format:
		// [0]      = instruction type (u8, 12 = TransferChecked)
		// [1..9]   = amount (u64)
		// [9]      = decimals (u8)
		if len(instruction.Data) < 10 {
			return nil, fmt.Errorf("transferChecked instruction data too short")
		}
		amount := binary.LittleEndian.Uint64(instruction.Data[1:9])

		// Account layout for TransferChecked: [source, mint, destination, authority].
		if len(instruction.Accounts) < 4 {
			return nil, fmt.Errorf("transferChecked missing accounts")
		}
		source, err := accountAt(instruction, accountKeys, 0)
		if err != nil {
			return nil, err
		}
		mint, err := accountAt(instruction, accountKeys, 1)
		if err != nil {
			return nil, err
		}
		destination, err := accountAt(instruction, accountKeys, 2)
		if err != nil {
			return nil, err
		}
		authority, err := accountAt(instruction, accountKeys, 3)
		if err != nil {
			return nil, err
		}

		return &Transfer{
			Kind:        KindToken,
			Amount:      amount,
			Source:      source,
			Destination: destination,
			Authority:   &authority,
			Mint:        &mint,
		}, nil

	default:
		return nil, fmt.Errorf("unknown token instruction type: %d", instruction.Data[0])
	}
}

// accountAt resolves the i-th account reference of an instruction.
func accountAt(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey, i int) (solana.PublicKey, error) {
	if i >= len(instruction.Accounts) {
		return solana.PublicKey{}, fmt.Errorf("account index %d out of range", i)
	}
	keyIndex := instruction.Accounts[i]
	if int(keyIndex) >= len(accountKeys) {
		return solana.PublicKey{}, fmt.Errorf("account key index %d out of bounds", keyIndex)
	}
	return accountKeys[keyIndex], nil
}
