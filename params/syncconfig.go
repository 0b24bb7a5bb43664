package params

import "time"

// SyncConfig holds the sync engine's configurable knobs (spec §6's
// "Sync" configuration group). All duration-like fields are plain
// counts/intervals rather than protocol parameters, so they live apart
// from ChainConfig's fork schedule.
type SyncConfig struct {
	DoFastSync bool

	MinPeersToChooseTarget uint
	TargetBlockOffset      uint64

	BlockHeadersPerRequest uint64
	BlockBodiesPerRequest  uint64
	ReceiptsPerRequest     uint64
	NodesPerRequest        uint64

	MaxConcurrentRequests uint

	PersistStateInterval time.Duration
	BlacklistDuration    time.Duration
	PeerResponseTimeout  time.Duration

	CheckForNewBlockInterval time.Duration

	MaxBranchResolutionRequests uint64

	MaxQueuedBlockNumberAhead  uint64
	MaxQueuedBlockNumberBehind uint64
}

// DefaultSyncConfig returns the sync tunables used when a node is not
// given an explicit configuration.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		DoFastSync:                  true,
		MinPeersToChooseTarget:      5,
		TargetBlockOffset:           10,
		BlockHeadersPerRequest:      192,
		BlockBodiesPerRequest:       128,
		ReceiptsPerRequest:          128,
		NodesPerRequest:             384,
		MaxConcurrentRequests:       16,
		PersistStateInterval:        10 * time.Second,
		BlacklistDuration:           5 * time.Minute,
		PeerResponseTimeout:         15 * time.Second,
		CheckForNewBlockInterval:    10 * time.Second,
		MaxBranchResolutionRequests: 20,
		MaxQueuedBlockNumberAhead:   1024,
		MaxQueuedBlockNumberBehind:  1024,
	}
}
