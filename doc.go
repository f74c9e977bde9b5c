// Package proofpad provides the core of an interactive
// proof-assistant front end: a marked-pattern expression editor and an
// asynchronous request queue to a backend prover.
//
// The editor is in packages 'expr' and 'marked'; the prover side is in
// 'queue', 'prover', and 'request'.  Some command-line tools are in
// 'cmd'.
package proofpad
