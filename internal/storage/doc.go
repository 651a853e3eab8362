// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the planner chat transcript.
//
// The transcript lives at ~/.velpro/planner_chat.json, is loaded once
// at startup, and is rewritten atomically on every mutation so a crash
// never leaves a torn file. Loading a transcript and saving it back
// produces identical bytes.
package storage
