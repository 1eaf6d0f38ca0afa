package contracts

// AtlasCipherABI is the subset of the AtlasCipher contract interface the
// settlement pipeline calls.
const AtlasCipherABI = `[
  {
    "inputs": [
      {"name": "recipient", "type": "address"},
      {"name": "amount", "type": "bytes"},
      {"name": "fee", "type": "bytes"},
      {"name": "memo", "type": "string"},
      {"name": "inputProof", "type": "bytes"}
    ],
    "name": "createTransaction",
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [
      {"name": "transactionId", "type": "uint256"},
      {"name": "settlementProof", "type": "bytes"},
      {"name": "proofData", "type": "bytes"}
    ],
    "name": "settleTransaction",
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`
