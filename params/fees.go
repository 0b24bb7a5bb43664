package params

// Gas cost constants, named per the Yellow Paper / EIP they come from.
// Repricings (EIP-150, EIP-160) are applied by the EVM's gas table
// consulting Rules, not by mutating these base constants.
const (
	TxGas                 uint64 = 21000 // per-transaction base cost
	TxGasContractCreation uint64 = 53000 // base cost for a contract-creation tx (post-Homestead)
	TxDataZeroGas         uint64 = 4     // per zero byte of tx payload
	TxDataNonZeroGas      uint64 = 68    // per non-zero byte of tx payload (pre-Istanbul)

	SstoreSetGas   uint64 = 20000 // storing a new value into a zero slot
	SstoreResetGas uint64 = 5000  // changing an existing non-zero slot
	SstoreClearGas uint64 = 5000  // clearing a slot to zero (refunded separately)
	SstoreRefundGas uint64 = 15000 // refund for clearing a slot to zero

	JumpdestGas uint64 = 1
	SloadGas    uint64 = 50  // pre-EIP-150
	SloadGasEIP150 uint64 = 200

	CallGas       uint64 = 40   // pre-EIP-150 base CALL cost
	CallGasEIP150 uint64 = 700  // post-EIP-150 base CALL cost
	CallValueTransferGas uint64 = 9000
	CallNewAccountGas    uint64 = 25000
	CallStipend          uint64 = 2300 // stipend forwarded on a value-bearing call

	CreateGas     uint64 = 32000
	CreateDataGas uint64 = 200 // per byte of deployed code

	ExpGas            uint64 = 10
	ExpByteGas        uint64 = 10 // pre-EIP-160
	ExpByteGasEIP160  uint64 = 50 // post-EIP-160

	LogGas         uint64 = 375
	LogDataGas     uint64 = 8
	LogTopicGas    uint64 = 375

	Sha3Gas     uint64 = 30
	Sha3WordGas uint64 = 6

	MemoryGas      uint64 = 3
	QuadCoeffDiv   uint64 = 512
	CopyGas        uint64 = 3

	SelfdestructGas            uint64 = 0
	SelfdestructGasEIP150      uint64 = 5000
	SelfdestructRefundGas      uint64 = 24000
	CreateBySelfdestructGas    uint64 = 25000 // EIP-150: new account created by SELFDESTRUCT's beneficiary

	// MaxCodeSize has no limit pre-EIP-170; this spec's fork range ends
	// before EIP-170, so contract code size is unbounded here.

	GasLimitBoundDivisor uint64 = 1024
	MinGasLimit          uint64 = 125000

	MaxExtraDataSize = 32

	MaxOmmerDepth = 6 // an ommer must be within 6 generations of the including block
	MaxOmmers     = 2

	RefundQuotient uint64 = 2 // unused-gas refund is capped at gas_used / RefundQuotient
)

// StackLimit is the maximum EVM stack depth.
const StackLimit = 1024

// CallCreateDepthLimit caps CALL/CREATE recursion (the 1024 message-call
// depth limit).
const CallCreateDepthLimit = 1024
