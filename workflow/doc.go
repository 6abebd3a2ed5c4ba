// Package workflow 实现课程设计工作流的编排核心。
//
// 一次运行由编排器独占持有一份可变的 State，按固定的阶段图依次执行
// 八个阶段处理器。阶段图中唯一的分支点在 material_production：质量门
// 根据综合评分与迭代计数决定回到 architecture_design（有界循环）还是
// 进入 finalization。批式调用 Run 在内部排空事件通道并返回编译好的
// 交付物；流式调用 Stream 把每次阶段转换与子任务完成写入事件通道，
// 由上层传输层消费。
package workflow
