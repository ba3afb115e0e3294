/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、LLM 与求解运行三大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
注册机制并支持注入自定义 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组。

# 主要能力

  - HTTP 指标：请求总数、请求耗时，按 method/path/status 分组，
    状态码归类为 2xx/3xx/4xx/5xx。
  - LLM 指标：请求总数、请求耗时、Token 用量（prompt/completion），
    按 provider/model 分组。
  - 求解指标：运行总数与耗时（按终态分组）、每次运行处理的链环节数、
    状态机转换计数、单步耗时。
*/
package metrics
