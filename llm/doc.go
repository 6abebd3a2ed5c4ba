// Package llm 实现生成后端网关（Generation Backend Gateway）。
//
// 网关对上层提供统一的 Generate 接口：按任务画像（TaskProfile）选择首选
// 后端，失败时在同一后端上最多重试 2 次（指数退避），仍失败则切换到配置
// 的备用后端再尝试 1 次，总尝试次数不超过 3 次。延迟与 token/成本用量
// 仅用于观测，不参与重试决策。
package llm
