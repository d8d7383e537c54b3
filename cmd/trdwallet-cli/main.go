// trdwallet-cli is a command-line client for a running trdwalletd.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/trd-wallet/config"
	"github.com/Klingon-tech/trd-wallet/internal/engine"
	"github.com/Klingon-tech/trd-wallet/internal/rpc"
	"github.com/Klingon-tech/trd-wallet/internal/rpcclient"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := ""
	network := "mainnet"

	// Scan for --rpc and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--testnet":
			network = "testnet"
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if rpcURL == "" {
		rpcURL = defaultRPCURL(network)
	}
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "capabilities":
		cmdCapabilities(client)
	case "height":
		cmdHeight(client)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "tokens":
		cmdTokens(client, cmdArgs)
	case "txs":
		cmdTxs(client, cmdArgs)
	case "address":
		cmdAddress(client)
	case "gap-add":
		cmdGapAdd(client, cmdArgs)
	case "used":
		cmdUsed(client, cmdArgs)
	case "spend":
		cmdSpend(client, cmdArgs)
	case "sign":
		cmdTxFile(client, "wallet_signTx", cmdArgs)
	case "broadcast":
		cmdTxFile(client, "wallet_broadcastTx", cmdArgs)
	case "save":
		cmdTxFile(client, "wallet_saveTx", cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: trdwallet-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:9545, testnet 9645)
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network testnet

Commands:
  status                          Show engine status
  capabilities                    Show optional operations the engine supports
  height                          Show the last seen block height
  balance [code]                  Show the balance of a currency (default: TRD)
  tokens enable <code>...         Enable token currencies
  tokens status <code>            Show whether a token is enabled
  txs [code] [--start n] [--count n]
                                  List transactions, newest first
  address                         Show a fresh receive address
  gap-add <addr>...               Add addresses to the gap-limit list
  used <addr>                     Show whether an address has been used

  spend --to <addr> --amount <n> [--currency <code>] [--fee-tier <tier>] [--fee <n>]
                                  Build an unsigned spend (printed as JSON)
  sign <file.json>                Sign a spend proposal
  broadcast <file.json>           Broadcast a signed spend
  save <file.json>                Record a broadcast spend in the ledger

Spend files are the JSON printed by spend, sign and broadcast; "-" reads stdin.
`)
}

func defaultRPCURL(network string) string {
	nt := config.Mainnet
	if network == string(config.Testnet) {
		nt = config.Testnet
	}
	rpcCfg := config.Default(nt).RPC
	return "http://" + net.JoinHostPort(rpcCfg.Addr, strconv.Itoa(rpcCfg.Port))
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var st engine.Status
	var bal rpc.BalanceResult
	calls := []*rpcclient.BatchCall{
		{Method: "engine_getStatus", Result: &st},
		{Method: "wallet_getBalance", Result: &bal},
	}
	if err := client.Batch(context.Background(), calls); err != nil {
		fatal("status: %v", err)
	}
	for _, c := range calls {
		if c.Err != nil {
			fatal("%s: %v", c.Method, c.Err)
		}
	}

	fmt.Printf("Running:      %v\n", st.Running)
	fmt.Printf("Height:       %d\n", st.BlockHeight)
	fmt.Printf("Scan done:    %v\n", st.AddressesChecked)
	fmt.Printf("Next index:   %d\n", st.UnusedAddressIndex)
	fmt.Printf("Pending txs:  %d\n", st.PendingTransactions)
	fmt.Printf("Unsaved:      %v\n", st.Dirty)
	fmt.Printf("Tokens:       %s\n", strings.Join(st.EnabledTokens, ", "))
	fmt.Printf("Balance:      %s %s\n", bal.Balance, bal.CurrencyCode)
}

func cmdCapabilities(client *rpcclient.Client) {
	var caps engine.Capabilities
	if err := client.Call("engine_getCapabilities", nil, &caps); err != nil {
		fatal("engine_getCapabilities: %v", err)
	}

	fmt.Printf("Sign:           %v\n", caps.Sign)
	fmt.Printf("Disable tokens: %v\n", caps.DisableTokens)
	fmt.Printf("Custom tokens:  %v\n", caps.CustomTokens)
	fmt.Printf("Resync:         %v\n", caps.Resync)
}

func cmdHeight(client *rpcclient.Client) {
	var result rpc.BlockHeightResult
	if err := client.Call("wallet_getBlockHeight", nil, &result); err != nil {
		fatal("wallet_getBlockHeight: %v", err)
	}
	fmt.Println(result.Height)
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client, args []string) {
	var params interface{}
	if len(args) > 0 {
		params = rpc.CurrencyParam{CurrencyCode: args[0]}
	}

	var result rpc.BalanceResult
	if err := client.Call("wallet_getBalance", params, &result); err != nil {
		fatal("wallet_getBalance: %v", err)
	}
	fmt.Printf("%s %s\n", result.Balance, result.CurrencyCode)
}

// ── tokens ──────────────────────────────────────────────────────────────

func cmdTokens(client *rpcclient.Client, args []string) {
	if len(args) < 2 {
		fatal("Usage: trdwallet-cli tokens enable <code>... | status <code>")
	}

	switch args[0] {
	case "enable":
		var result rpc.TokensResult
		if err := client.Call("wallet_enableTokens", rpc.TokensParam{Tokens: args[1:]}, &result); err != nil {
			fatal("wallet_enableTokens: %v", err)
		}
		fmt.Printf("Enabled: %s\n", strings.Join(result.Enabled, ", "))
	case "status":
		var result rpc.TokenStatusResult
		if err := client.Call("wallet_getTokenStatus", rpc.CurrencyParam{CurrencyCode: args[1]}, &result); err != nil {
			fatal("wallet_getTokenStatus: %v", err)
		}
		fmt.Printf("%s enabled: %v\n", result.CurrencyCode, result.Enabled)
	default:
		fatal("unknown tokens subcommand: %s", args[0])
	}
}

// ── txs ─────────────────────────────────────────────────────────────────

func cmdTxs(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("txs", flag.ExitOnError)
	start := fs.Int("start", 0, "Index of the first transaction")
	count := fs.Int("count", 0, "Number of transactions (0 = all)")

	params := rpc.TransactionsParam{}
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		params.CurrencyCode = args[0]
		args = args[1:]
	}
	fs.Parse(args)
	params.StartIndex = *start
	params.Count = *count

	var result rpc.TransactionsResult
	if err := client.Call("wallet_getTransactions", params, &result); err != nil {
		fatal("wallet_getTransactions: %v", err)
	}

	if len(result.Transactions) == 0 {
		fmt.Printf("No %s transactions.\n", result.CurrencyCode)
		return
	}
	for _, tx := range result.Transactions {
		ts := time.Unix(tx.Timestamp, 0).UTC().Format("2006-01-02 15:04:05")
		fmt.Printf("%s  %s  %12s %s  height %d\n", ts, tx.TxID, tx.NetNativeAmount, tx.CurrencyCode, tx.BlockHeight)
	}
}

// ── addresses ───────────────────────────────────────────────────────────

func cmdAddress(client *rpcclient.Client) {
	var result rpc.AddressResult
	if err := client.Call("wallet_getFreshAddress", nil, &result); err != nil {
		fatal("wallet_getFreshAddress: %v", err)
	}
	fmt.Println(result.Address)
}

func cmdGapAdd(client *rpcclient.Client, args []string) {
	if len(args) == 0 {
		fatal("Usage: trdwallet-cli gap-add <addr>...")
	}
	if err := client.Call("wallet_addGapLimitAddresses", rpc.AddressesParam{Addresses: args}, nil); err != nil {
		fatal("wallet_addGapLimitAddresses: %v", err)
	}
	fmt.Printf("Added %d address(es).\n", len(args))
}

func cmdUsed(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: trdwallet-cli used <addr>")
	}
	var result rpc.AddressUsedResult
	if err := client.Call("wallet_isAddressUsed", rpc.AddressParam{Address: args[0]}, &result); err != nil {
		fatal("wallet_isAddressUsed: %v", err)
	}
	fmt.Printf("%s used: %v\n", result.Address, result.Used)
}

// ── spend ───────────────────────────────────────────────────────────────

func cmdSpend(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("spend", flag.ExitOnError)
	to := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount in native units")
	currency := fs.String("currency", "", "Currency code (default: TRD)")
	tier := fs.String("fee-tier", "", "Fee tier: standard, high, low or custom")
	feeStr := fs.String("fee", "", "Custom fee in native units (implies --fee-tier custom)")
	fs.Parse(args)

	if *to == "" || *amountStr == "" {
		fatal("Usage: trdwallet-cli spend --to <addr> --amount <n> [--currency <code>] [--fee-tier <tier>] [--fee <n>]")
	}
	amount, err := types.ParseAmount(*amountStr)
	if err != nil {
		fatal("invalid amount: %v", err)
	}

	req := wallet.SpendRequest{
		CurrencyCode: *currency,
		Targets:      []wallet.SpendTarget{{Address: *to, Amount: &amount}},
		FeeTier:      wallet.FeeTier(*tier),
	}
	if *feeStr != "" {
		fee, err := types.ParseAmount(*feeStr)
		if err != nil {
			fatal("invalid fee: %v", err)
		}
		req.FeeTier = wallet.FeeCustom
		req.CustomFee = &fee
	}

	var tx wallet.Transaction
	if err := client.Call("wallet_makeSpend", req, &tx); err != nil {
		if rpcclient.IsCode(err, rpc.CodeInsufficientFunds) {
			fatal("insufficient funds for %s (fee included)", amount)
		}
		fatal("wallet_makeSpend: %v", err)
	}
	printJSON(&tx)
}

// cmdTxFile sends a transaction read from a file to one of the
// transaction-taking methods and prints the result.
func cmdTxFile(client *rpcclient.Client, method string, args []string) {
	if len(args) != 1 {
		fatal("Usage: trdwallet-cli %s <file.json>", strings.TrimPrefix(method, "wallet_"))
	}
	tx := readTx(args[0])

	if method == "wallet_saveTx" {
		if err := client.Call(method, rpc.TransactionParam{Transaction: tx}, nil); err != nil {
			fatal("%s: %v", method, err)
		}
		fmt.Printf("Saved %s.\n", tx.TxID)
		return
	}

	var out wallet.Transaction
	if err := client.Call(method, rpc.TransactionParam{Transaction: tx}, &out); err != nil {
		fatal("%s: %v", method, err)
	}
	printJSON(&out)
}

func readTx(path string) *wallet.Transaction {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		fatal("read %s: %v", path, err)
	}

	var tx wallet.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		fatal("decode transaction: %v", err)
	}
	return &tx
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encode: %v", err)
	}
	fmt.Println(string(data))
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
