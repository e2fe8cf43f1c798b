package decoder

// contractABI holds the event fragment of the lottery contract interface.
const contractABI = `[
  {"type":"event","name":"TicketPurchased","anonymous":false,"inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"gameNumber","type":"uint256","indexed":false},
    {"name":"numbers","type":"uint256[3]","indexed":false},
    {"name":"etherball","type":"uint256","indexed":false}]},
  {"type":"event","name":"DrawInitiated","anonymous":false,"inputs":[
    {"name":"gameNumber","type":"uint256","indexed":false},
    {"name":"targetSetBlock","type":"uint256","indexed":false}]},
  {"type":"event","name":"RandomSet","anonymous":false,"inputs":[
    {"name":"gameNumber","type":"uint256","indexed":false},
    {"name":"random","type":"uint256","indexed":false}]},
  {"type":"event","name":"VDFProofSubmitted","anonymous":false,"inputs":[
    {"name":"submitter","type":"address","indexed":true},
    {"name":"gameNumber","type":"uint256","indexed":false}]},
  {"type":"event","name":"GamePrizePayoutInfo","anonymous":false,"inputs":[
    {"name":"gameNumber","type":"uint256","indexed":false},
    {"name":"goldPrize","type":"uint256","indexed":false},
    {"name":"silverPrize","type":"uint256","indexed":false},
    {"name":"bronzePrize","type":"uint256","indexed":false}]}
]`
