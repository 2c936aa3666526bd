// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "fmt"

// BitcoinNet represents which network a header or block belongs to;
// kept to let chainparams.NetworkParameters key a parameter set by a
// magic value the way a full node's P2P layer would, even though this
// module never opens a P2P connection itself.
type BitcoinNet uint32

const (
	// MainNet represents the main Bitcoin network.
	MainNet BitcoinNet = 0xd9b4bef9

	// TestNet3 represents the test network (version 3).
	TestNet3 BitcoinNet = 0x0709110b

	// RegTest represents the regression test network.
	RegTest BitcoinNet = 0xdab5bffa
)

var bnStrings = map[BitcoinNet]string{
	MainNet:  "MainNet",
	TestNet3: "TestNet3",
	RegTest:  "RegTest",
}

// String returns the BitcoinNet in human-readable form.
func (n BitcoinNet) String() string {
	if s, ok := bnStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown BitcoinNet (0x%08x)", uint32(n))
}
