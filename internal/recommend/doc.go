// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package recommend implements the personalized menu recommendation
// pipeline: vector retrieval, composite reranking, MMR diversity
// selection, multi-course meal composition, and Bayesian taste-profile
// learning, all orchestrated by a session engine.
//
// # Pipeline
//
// Each next() call flows through four stages:
//
//  1. Retrieve: safety-filter the restaurant menu (allergens and
//     dietary rules are absolute), then order by ANN similarity with a
//     circuit-broken fallback to an exact scan.
//  2. Rerank: composite relevance score over taste match, cuisine
//     affinity, popularity, and an exploration bonus, with contextual
//     modifiers and a hard breakfast time gate.
//  3. Diversify: MMR selection with per-cuisine caps and a price band,
//     or
//  4. Compose: multi-course assembly under budget and harmony
//     constraints with an explicit relaxation ladder.
//
// # Learning
//
// Feedback updates per-axis Beta posteriors (decay-before-increment
// with a configurable half-life), cuisine affinities, and the per-user
// scoring-weight vector. Retrieval draws Thompson samples from the
// posteriors, so exploration falls out of posterior uncertainty rather
// than an explicit epsilon.
//
// # Concurrency
//
// Sessions and profiles commit through optimistic version checks with
// bounded retries. The vector index is immutable and replaced
// atomically on rebuild.
package recommend
