// Package scano scans JavaScript, TypeScript, CSS and HTML sources for
// modern web platform features and checks each one against browser
// support data from the web-features registry.
//
// # Pipeline
//
// A run moves through four stages:
//
//  1. Index: registry keywords (API names, CSS properties, HTML elements
//     and attributes, titles) are merged with a built-in override table
//     and any configured or scripted overrides into a lowercase keyword
//     index.
//
//  2. Detect: each file is routed by extension. Scripts are parsed with
//     tree-sitter and walked with a closed set of node matchers (keyword
//     identifiers, optional chaining, nullish coalescing, await, dynamic
//     import, navigator.bluetooth). Stylesheets and markup are matched
//     line by line.
//
//  3. Resolve: detections are grouped by feature and each group gets a
//     support verdict: supported only when every tracked browser has a
//     version.
//
//  4. Report: a console summary, a JSON report and a plaintext run log.
//     The exit code is 1 when any detected feature lacks support.
//
// # Usage
//
//	e, err := scano.New(scano.WithIgnore("node_modules/**"))
//	if err != nil { ... }
//	defer e.Close()
//
//	out, err := e.Scan(ctx, "path/to/project")
//	os.Exit(out.ExitCode)
//
// [Engine.Run] scans an explicit file list instead and leaves cache
// entries for other files alone.
//
// # Caching and history
//
// [WithDatabase] enables a SQLite store. Unchanged files, identified by
// content hash and keyword index hash, reuse their stored detections, and
// every run is recorded for scano history. Opening a database written by
// another scano version discards its cached detections.
//
// # Rule scripts
//
// [WithRules] loads Risor scripts that add keyword overrides. Scripts see
// feature_ids, feature(id) and log, and call override(keyword, id) or
// evaluate to a map of keyword to feature ID.
package scano
