// Package specialists 实现五个固定的专家角色（Specialist Role）。
//
// 每个角色把生成后端网关包装在一个能力特定的契约后面：输入状态切片，
// 产出一种强类型工件。角色集合是封闭的，启动时通过 NewRegistry 全部
// 注册，不使用反射。后端输出在网关层重试+降级耗尽后仍然无效时，角色
// 返回携带角色标识与最后一次原始输出的 GENERATION 错误，绝不以占位
// 内容顶替。
package specialists
