// Package core turns parsed contacts into flat CSV-ready records.
//
// The package has no I/O of its own beyond input hygiene: parsing is done by
// package vcf and serialization by package export. It can be driven from the
// CLI, the HTTP endpoint or tests without modification.
//
// # Extraction
//
// [Extract] maps one [Contact] to a [FlatRecord]:
//
//  1. The first organization component becomes Name. A contact without an
//     organization fails with a [MissingFieldError] matching
//     [ErrMissingRequiredField].
//  2. The address is optional. When it is missing, every address column is
//     empty.
//  3. Street, extended, city, region, postal code and country are read one by
//     one. A missing part is logged and leaves only its own column empty.
//  4. Addr1/Addr2 come from [SplitStreet].
//
// [ExtractAll] applies Extract to a lazy sequence, dropping contacts that fail
// step 1 and returning any other failure to the caller.
//
// # Columns
//
// [AllFields] lists every selectable column and [DefaultFields] the default
// selection. [Header] and [Project] turn a selection into CSV rows, and
// [SuppressCountry] blanks a home country before output.
//
// # Error Handling
//
// Errors are mapped to coded user messages with [MapError]:
//
//   - VCF001-VCF002: vCard input problems
//   - FLD001: column selection
//   - FILE001, FILE005: upload size and empty input
//   - CNV001, REQ001-REQ002: conversion capacity, cancellation and timeouts
//   - DB004: contact store connectivity
package core
