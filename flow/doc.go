// Copyright 2025 DialogFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package flow 实现声明式流程图的加载、校验与逐轮执行。

# 概述

一个 Flow 是对一个业务过程（预约挂号、问题受理、紧急分诊等）的有向
图建模。Definition 在加载时一次性构建为以节点 id 索引的不可变数据，
执行器只操作 id，避免循环对象图。Definition 可与 YAML 互相序列化。

# 执行模型

每轮执行遵循固定算法：合并话语与新实体到变量包 → 递增当前节点
尝试计数 → 超过 max_attempts 则按扫描顺序转入首个 escalation 节点
（不存在时以 max_attempts_exceeded 终止）→ 否则按 AND 语义评估节点
条件，满足则经分支标签（回退 default）解析下一节点并执行，不满足
则重新执行当前节点。每次节点进入都会追加带变量快照的历史记录。

# 动作

动作以类型化接口分发：每种动作实现 Action.Execute(ctx, *ActionContext)。
注册表在流程加载时校验，未知动作类型属配置错误；处理器返回值被捕获
进流程变量，失败只记录、不自动重试。

# 不变式

  - 每个 (session, flow) 至多一份 ExecutionState
  - 尝试计数仅在离开节点时清零
  - 尝试耗尽必然产生升级转移或终止失败，绝不静默死循环
*/
package flow
