package chain

import "time"

// ==================== MUD Resource IDs ====================

// Resource type tags and field widths of a MUD bytes32 resource id
const (
	ResourceTypeSystem = "sy"
	resourceTypeLen    = 2
	namespaceLen       = 14
	resourceNameLen    = 16
)

// DefaultNamespace is the root MUD namespace
const DefaultNamespace = ""

// Default system names per logical system, before truncation to 16 bytes
const (
	SystemNameCrafting     = "CraftingSystem"
	SystemNamePlacement    = "PlacementSystem"
	SystemNameLandCreation = "LandCreationSystem"
	SystemNameUnlock       = "TransformationSystem"
)

// System method names
const (
	MethodCraft      = "craftRecipe"
	MethodPlaceItem  = "placeItem"
	MethodCreateLand = "createLand"
	MethodUnlock     = "timeUnlockItem"
)

// World and land NFT method names
const (
	MethodBatchCall = "batchCall"
	MethodCall      = "call"
	MethodOwnerOf   = "ownerOf"
)

// ==================== Transactions ====================

const (
	// DefaultGasMultiplier pads estimated gas for state drift between
	// estimation and inclusion
	DefaultGasMultiplier = 1.2

	// DefaultReceiptPollInterval is how often WaitForReceipt polls the node
	DefaultReceiptPollInterval = 2 * time.Second

	// DefaultConfirmationTimeout bounds WaitForReceipt
	DefaultConfirmationTimeout = 120 * time.Second

	// SelectorHexLen is the length of a 4-byte selector in hex characters
	SelectorHexLen = 8
)

// ==================== ABI Files ====================

const (
	ABIFileSuffix     = ".abi.json"
	JSONFileSuffix    = ".json"
	ABIBareFileName   = "abi.json"
	ABIEntryTypeError = "error"
	abiFieldABI       = "abi"
	abiFieldContracts = "contracts"
)

// ==================== Log Messages ====================

const (
	LogMsgABISkipped      = "Skipping unparsable ABI file"
	LogMsgABIsLoaded      = "Contract ABIs loaded"
	LogMsgSelectorClash   = "Error selector defined by more than one contract"
	LogMsgTxSent          = "Transaction sent"
	LogMsgReceiptPending  = "Waiting for receipt"
	LogMsgReceiptReceived = "Receipt received"
)
