// Copyright 2025 DialogFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package types 提供 DialogFlow 引擎的全局共享类型定义。

# 概述

types 是引擎最底层的公共包，不依赖任何内部包，为 nlu、flow、respond、
session、engine 等上层模块提供统一的类型契约。所有跨包共享的枚举、
结构体和错误码均定义于此，以避免循环依赖。

# 核心类型

  - Turn / Role          — 单轮对话记录（角色、文本、时间戳）
  - DialogueState        — 对话阶段状态机（greeting → … → farewell）
  - Intent               — 封闭意图集合（预约、咨询、投诉、紧急等）
  - AnalysisResult       — 单轮话语的 NLU 分析结果
  - Persona              — 人设配置（风格滑杆、语言、能力/限制清单）
  - Error / ErrorCode    — 结构化错误体系，区分 Timeout / Unparseable /
    RateLimited 等降级原因

# 主要能力

  - 状态机校验：DialogueState.CanTransitionTo 实现固定阶段顺序，
    completion/farewell 在检测到新意图时允许回退到 gathering
  - 错误工具链：NewError / WithCause / IsCode / IsRetryable
*/
package types
