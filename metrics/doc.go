/*
Package metrics defines the sink the dispatcher reports to.

Every dispatcher call reports under "{operation}_{RecordType}":

	get_Post.success            counter
	get_Post.error              counter
	get_Post.result_count       value
	get_Post.duration_seconds   value

PrometheusSink exposes these as a counter vector and a histogram vector
labelled by name, registered in a private registry:

	sink := metrics.NewPrometheusSink("blogstore")
	http.Handle("/metrics", promhttp.HandlerFor(sink.Registry(), promhttp.HandlerOpts{}))
*/
package metrics
