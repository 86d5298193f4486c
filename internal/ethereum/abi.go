package ethereum

import (
	"io"
	"strings"
)

// Minimal ABI for the confidential energy market contract - only the methods we call.

func mustMarketABI() io.Reader {
	return strings.NewReader(`[
		{
			"name": "getAllBusinessIds",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "string[]"}]
		},
		{
			"name": "getBusinessData",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "businessId", "type": "string"}],
			"outputs": [
				{"name": "name",           "type": "string"},
				{"name": "publicValue1",   "type": "uint256"},
				{"name": "publicValue2",   "type": "uint256"},
				{"name": "description",    "type": "string"},
				{"name": "creator",        "type": "address"},
				{"name": "timestamp",      "type": "uint256"},
				{"name": "decryptedValue", "type": "uint32"},
				{"name": "isVerified",     "type": "bool"}
			]
		},
		{
			"name": "getEncryptedValue",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "businessId", "type": "string"}],
			"outputs": [{"name": "", "type": "bytes32"}]
		},
		{
			"name": "isAvailable",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "bool"}]
		},
		{
			"name": "createBusinessData",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "businessId",     "type": "string"},
				{"name": "name",           "type": "string"},
				{"name": "encryptedValue", "type": "bytes32"},
				{"name": "inputProof",     "type": "bytes"},
				{"name": "publicValue1",   "type": "uint256"},
				{"name": "publicValue2",   "type": "uint256"},
				{"name": "description",    "type": "string"}
			],
			"outputs": []
		},
		{
			"name": "verifyDecryption",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "businessId",          "type": "string"},
				{"name": "abiEncodedClearValue", "type": "bytes"},
				{"name": "decryptionProof",     "type": "bytes"}
			],
			"outputs": []
		}
	]`)
}
