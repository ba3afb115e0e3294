/*
包 llm 提供统一的大语言模型接入层。

# 概述

本包屏蔽模型服务商在接口、鉴权和错误语义上的差异，
对上层业务暴露一致的请求与响应模型。

核心接口是 [Provider]，包含补全、健康检查与名称声明。
基于该接口，求解管线可以在保持上层调用不变的前提下切换底层模型服务。

# 核心类型

  - [ChatRequest] / [ChatResponse]：聊天请求与响应
  - [HealthStatus]：健康检查状态

# 相关子包

- llm/retry：重试与退避策略。
*/
package llm
