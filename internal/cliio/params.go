package cliio

import "github.com/btcsuite/btcd/chaincfg"

// defaultParams selects the network whose address encoding ParseTargetLine
// assumes; the puzzle targets are all mainnet addresses.
var defaultParams = &chaincfg.MainNetParams
