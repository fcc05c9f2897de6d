// Package core provides a small, stable facade over qrisk's internal engine
// for external integrations. It re-exports a narrow API surface so that CI
// plugins and other tools can depend on a stable import path without
// importing internal implementation packages.
//
// Example:
//
//	rep, path, err := core.Analyze(ctx, "contracts/Wallet.sol", core.Options{})
//	if err != nil { /* handle */ }
//	fmt.Println(rep.RiskScore, path)
//	_ = core.MarshalReport(os.Stdout, rep)
package core
