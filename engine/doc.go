// Copyright 2025 DialogFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

// Package engine 是对话编排器：把一轮用户输入依次交给分析器（nlu）、
// 会话状态（session）、流程图引擎（flow）与回复合成器（respond），
// 返回回复加元数据。对外暴露 StartFlow / ProcessTurn / GetFlowStatus /
// EndFlow 四个操作。
//
// 编排器不做会话内并发控制：同一会话的轮次由调用方串行提交，不同会话
// 之间可以并行。
package engine
