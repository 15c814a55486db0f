package ledger

// RegistryABI is the interface of the CertificateRegistry contract
const RegistryABI = `[
  {"type":"function","name":"issueCertificate","stateMutability":"nonpayable",
   "inputs":[{"name":"documentHash","type":"bytes32"},{"name":"storageURI","type":"string"},{"name":"signature","type":"bytes"}],
   "outputs":[{"name":"id","type":"uint256"}]},
  {"type":"function","name":"revokeCertificate","stateMutability":"nonpayable",
   "inputs":[{"name":"id","type":"uint256"},{"name":"reason","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"certificates","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"documentHash","type":"bytes32"},
     {"name":"storageURI","type":"string"},
     {"name":"issuer","type":"address"},
     {"name":"signature","type":"bytes"},
     {"name":"issuedAt","type":"uint256"},
     {"name":"revoked","type":"bool"},
     {"name":"revocationReason","type":"string"}]},
  {"type":"function","name":"certCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"CertificateIssued","anonymous":false,
   "inputs":[
     {"name":"id","type":"uint256","indexed":true},
     {"name":"documentHash","type":"bytes32","indexed":false},
     {"name":"storageURI","type":"string","indexed":false},
     {"name":"issuer","type":"address","indexed":true}]},
  {"type":"event","name":"CertificateRevoked","anonymous":false,
   "inputs":[
     {"name":"id","type":"uint256","indexed":true},
     {"name":"reason","type":"string","indexed":false}]}
]`

// Event names emitted by the registry
const (
	EventCertificateIssued  = "CertificateIssued"
	EventCertificateRevoked = "CertificateRevoked"
)
