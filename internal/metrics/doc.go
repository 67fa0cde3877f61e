// Copyright 2025 DialogFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

// Package metrics 提供对话引擎的 Prometheus 指标采集：轮次计数与耗时、
// 意图分布、升级与兜底回复次数、外部调用耗时以及活跃流数量。
// 本包为内部包，不对外部项目暴露。
package metrics
